// Package service holds the account, profile and friend-request flows. It
// depends only on the store interfaces below so it runs the same against
// MySQL and the in-memory store.
package service

import (
	"context"
	"time"

	"lingomate/models"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	ListCandidates(ctx context.Context, userID string) ([]*models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate, when time.Time) error
	SetProfilePic(ctx context.Context, id, url string, when time.Time) error
	UpdateStreak(ctx context.Context, id string, streak models.Streak) error
	AddBlocked(ctx context.Context, userID, blockedID string, when time.Time) error
	RemoveBlocked(ctx context.Context, userID, blockedID string) error
}

type FriendStore interface {
	CreateRequest(ctx context.Context, r *models.FriendRequest) error
	GetRequest(ctx context.Context, id string) (*models.FriendRequest, error)
	FindRequestBetween(ctx context.Context, a, b string) (*models.FriendRequest, error)
	AcceptRequest(ctx context.Context, r *models.FriendRequest, when time.Time) (bool, error)
	RejectRequest(ctx context.Context, id string, when time.Time) (bool, error)
	CancelRequest(ctx context.Context, id string) (bool, error)
	ListIncoming(ctx context.Context, userID string) ([]*models.FriendRequest, error)
	ListOutgoing(ctx context.Context, userID string, pendingOnly bool) ([]*models.FriendRequest, error)
	AddFriendship(ctx context.Context, a, b string, when time.Time) error
	RemoveFriendship(ctx context.Context, a, b string) (bool, error)
	ListFriendIDs(ctx context.Context, userID string) ([]string, error)
	AreFriends(ctx context.Context, a, b string) (bool, error)
}

type Store interface {
	UserStore
	FriendStore
	Ping(ctx context.Context) error
}

// Event types pushed to connected clients.
const (
	EventFriendRequest         = "friend_request"
	EventFriendRequestAccepted = "friend_request_accepted"
)

// Notifier delivers realtime events to a user's open connections.
type Notifier interface {
	Notify(userID, eventType string, data any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, any) {}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
