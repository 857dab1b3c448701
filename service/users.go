package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lingomate/models"
	"lingomate/presence"
)

type UsersService struct {
	store    UserStore
	presence presence.Client
	logger   *slog.Logger
	now      func() time.Time
}

func NewUsersService(store UserStore, client presence.Client, logger *slog.Logger) *UsersService {
	return &UsersService{store: store, presence: client, logger: logger, now: time.Now}
}

// ListCandidates returns users with a completed profile who are neither the
// user, a friend, nor blocked by the user. No ranking is applied.
func (s *UsersService) ListCandidates(ctx context.Context, userID string) ([]models.CandidateProfile, error) {
	users, err := s.store.ListCandidates(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.CandidateProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToCandidate())
	}
	return out, nil
}

func (s *UsersService) Block(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return models.NewValidationError("You cannot block yourself")
	}
	if _, err := s.store.GetUserByID(ctx, targetID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewError(models.ErrNotFound, "User not found")
		}
		return err
	}
	if err := s.store.AddBlocked(ctx, userID, targetID, s.now().UTC()); err != nil {
		return err
	}
	s.logger.Info("user blocked", "user_id", userID, "blocked_id", targetID)
	return nil
}

func (s *UsersService) Unblock(ctx context.Context, userID, targetID string) error {
	return s.store.RemoveBlocked(ctx, userID, targetID)
}

// ChatToken issues the chat/video provider token for userID.
func (s *UsersService) ChatToken(userID string) (string, error) {
	return s.presence.CreateToken(userID)
}
