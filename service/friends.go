package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lingomate/models"
)

type FriendsService struct {
	users    UserStore
	friends  FriendStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewFriendsService(users UserStore, friends FriendStore, notifier Notifier, logger *slog.Logger) *FriendsService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &FriendsService{users: users, friends: friends, notifier: notifier, logger: logger, now: time.Now}
}

// SendRequest creates a pending request from sender to recipient. At most
// one request exists per pair of users regardless of direction.
func (s *FriendsService) SendRequest(ctx context.Context, senderID, recipientID string) (*models.FriendRequest, error) {
	if senderID == recipientID {
		return nil, models.NewValidationError("You cannot send a friend request to yourself")
	}

	recipient, err := s.users.GetUserByID(ctx, recipientID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewError(models.ErrNotFound, "Recipient not found")
	}
	if err != nil {
		return nil, err
	}

	friends, err := s.friends.AreFriends(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, models.NewError(models.ErrAlreadyFriends, "You are already friends with this user")
	}

	_, err = s.friends.FindRequestBetween(ctx, senderID, recipientID)
	switch {
	case err == nil:
		return nil, models.NewError(models.ErrRequestExists, "Friend request already exists")
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	now := s.now().UTC()
	req := &models.FriendRequest{
		ID:        uuid.NewString(),
		Sender:    senderID,
		Recipient: recipient.ID,
		Status:    models.RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.friends.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, models.ErrRequestExists) {
			return nil, models.NewError(models.ErrRequestExists, "Friend request already exists")
		}
		return nil, err
	}
	s.logger.Info("friend request sent", "request_id", req.ID, "sender_id", senderID, "recipient_id", recipientID)

	s.notifier.Notify(recipientID, EventFriendRequest, req)
	return req, nil
}

// AcceptRequest lets the recipient accept a pending request. Accepting an
// already accepted request succeeds and repairs the friendship edge if it is
// missing.
func (s *FriendsService) AcceptRequest(ctx context.Context, actorID, requestID string) (*models.FriendRequest, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Recipient != actorID {
		return nil, models.NewError(models.ErrForbidden, "You are not authorized to accept this request")
	}

	now := s.now().UTC()
	switch req.Status {
	case models.RequestAccepted:
		if err := s.friends.AddFriendship(ctx, req.Sender, req.Recipient, now); err != nil {
			return nil, err
		}
		return req, nil
	case models.RequestRejected:
		return nil, models.NewError(models.ErrRequestResolved, "Friend request was already rejected")
	}

	ok, err := s.friends.AcceptRequest(ctx, req, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another transition; report the state it ended in.
		return s.settled(ctx, requestID, models.RequestAccepted, "Friend request was already rejected")
	}
	req.Status = models.RequestAccepted
	req.UpdatedAt = now
	s.logger.Info("friend request accepted", "request_id", req.ID)

	s.notifier.Notify(req.Sender, EventFriendRequestAccepted, req)
	return req, nil
}

// RejectRequest lets the recipient reject a pending request. Rejected is
// terminal, and the pair cannot send each other a new request.
func (s *FriendsService) RejectRequest(ctx context.Context, actorID, requestID string) (*models.FriendRequest, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Recipient != actorID {
		return nil, models.NewError(models.ErrForbidden, "You are not authorized to reject this request")
	}

	switch req.Status {
	case models.RequestRejected:
		return req, nil
	case models.RequestAccepted:
		return nil, models.NewError(models.ErrRequestResolved, "Friend request was already accepted")
	}

	now := s.now().UTC()
	ok, err := s.friends.RejectRequest(ctx, req.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.settled(ctx, requestID, models.RequestRejected, "Friend request was already accepted")
	}
	req.Status = models.RequestRejected
	req.UpdatedAt = now
	s.logger.Info("friend request rejected", "request_id", req.ID)
	return req, nil
}

// CancelRequest lets the sender withdraw a request that is still pending.
func (s *FriendsService) CancelRequest(ctx context.Context, actorID, requestID string) error {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Sender != actorID {
		return models.NewError(models.ErrForbidden, "You are not authorized to cancel this request")
	}
	if req.Status != models.RequestPending {
		return models.NewError(models.ErrRequestResolved, "Friend request has already been "+string(req.Status))
	}

	ok, err := s.friends.CancelRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewError(models.ErrRequestResolved, "Friend request is no longer pending")
	}
	s.logger.Info("friend request cancelled", "request_id", req.ID)
	return nil
}

func (s *FriendsService) ListIncoming(ctx context.Context, userID string) ([]models.FriendRequestView, error) {
	reqs, err := s.friends.ListIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, reqs)
}

func (s *FriendsService) ListOutgoing(ctx context.Context, userID string, pendingOnly bool) ([]models.FriendRequestView, error) {
	reqs, err := s.friends.ListOutgoing(ctx, userID, pendingOnly)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, reqs)
}

func (s *FriendsService) ListFriends(ctx context.Context, userID string) ([]models.PublicProfile, error) {
	ids, err := s.friends.ListFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToPublic())
	}
	return out, nil
}

// RemoveFriend deletes the friendship and the pair's request so either user
// can send a new request later.
func (s *FriendsService) RemoveFriend(ctx context.Context, actorID, friendID string) error {
	ok, err := s.friends.RemoveFriendship(ctx, actorID, friendID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewError(models.ErrNotFound, "Friend not found")
	}
	s.logger.Info("friend removed", "user_id", actorID, "friend_id", friendID)
	return nil
}

func (s *FriendsService) loadRequest(ctx context.Context, id string) (*models.FriendRequest, error) {
	req, err := s.friends.GetRequest(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewError(models.ErrNotFound, "Friend request not found")
	}
	return req, err
}

// settled re-reads a request whose guarded update matched nothing. Ending in
// the wanted state counts as success.
func (s *FriendsService) settled(ctx context.Context, id string, want models.RequestStatus, conflict string) (*models.FriendRequest, error) {
	req, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == want {
		return req, nil
	}
	return nil, models.NewError(models.ErrRequestResolved, conflict)
}

// views attaches both participants' public profiles to each request.
// Requests whose participants no longer exist are skipped.
func (s *FriendsService) views(ctx context.Context, reqs []*models.FriendRequest) ([]models.FriendRequestView, error) {
	seen := map[string]bool{}
	ids := []string{}
	for _, r := range reqs {
		for _, id := range []string{r.Sender, r.Recipient} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]models.FriendRequestView, 0, len(reqs))
	for _, r := range reqs {
		sender, ok1 := byID[r.Sender]
		recipient, ok2 := byID[r.Recipient]
		if !ok1 || !ok2 {
			continue
		}
		out = append(out, models.FriendRequestView{
			ID:        r.ID,
			Sender:    sender.ToPublic(),
			Recipient: recipient.ToPublic(),
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return out, nil
}
