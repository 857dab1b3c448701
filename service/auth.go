package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"lingomate/auth"
	"lingomate/models"
	"lingomate/presence"
)

const minPasswordLength = 7

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type SignupInput struct {
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	NativeLanguage string `json:"nativeLanguage"`
}

type AuthService struct {
	store    UserStore
	hasher   *auth.Hasher
	sessions *auth.Issuer
	presence *presence.Syncer
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthService(store UserStore, hasher *auth.Hasher, sessions *auth.Issuer, sync *presence.Syncer, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:    store,
		hasher:   hasher,
		sessions: sessions,
		presence: sync,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *AuthService) SessionTTL() time.Duration { return s.sessions.TTL() }

// Signup creates the account and returns it with a fresh session token.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, string, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	in.NativeLanguage = strings.TrimSpace(in.NativeLanguage)

	if in.FullName == "" || in.Email == "" || in.Password == "" || in.NativeLanguage == "" {
		return nil, "", models.NewValidationError("All fields are required.")
	}
	if len(in.Password) < minPasswordLength {
		return nil, "", models.NewValidationError("Password must be at least 7 characters long.")
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, "", models.NewValidationError("Invalid email format.")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	u := &models.User{
		ID:                uuid.NewString(),
		FullName:          in.FullName,
		Email:             in.Email,
		Password:          hash,
		ProfilePic:        fmt.Sprintf("https://api.dicebear.com/7.x/adventurer/svg?seed=%d", rand.IntN(100000)),
		NativeLanguage:    in.NativeLanguage,
		LearningLanguages: []models.LearningLanguage{},
		Availability:      []models.AvailabilitySlot{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			return nil, "", models.NewError(models.ErrEmailTaken, "Email already in use.")
		}
		return nil, "", err
	}
	s.logger.Info("user signed up", "user_id", u.ID)

	s.presence.Sync(presence.Identity{ID: u.ID, Name: u.FullName, Image: u.ProfilePic})

	token, err := s.sessions.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u.Sanitized(), token, nil
}

// Login checks the credentials, bumps the daily streak and returns a fresh
// session token. Unknown email and wrong password fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", models.NewValidationError("All fields are required.")
	}

	invalid := models.NewError(models.ErrInvalidCredentials, "Invalid email or password.")

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, "", invalid
	}
	if err != nil {
		return nil, "", err
	}

	ok, err := s.hasher.Verify(password, u.Password)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", invalid
	}

	s.touchStreak(ctx, u)

	token, err := s.sessions.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u.Sanitized(), token, nil
}

// Authenticate resolves a session token to its user. It returns
// auth.ErrInvalidToken for a bad token and models.ErrNotFound when the user
// no longer exists.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.sessions.Verify(token)
	if err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Sanitized(), nil
}

func (s *AuthService) touchStreak(ctx context.Context, u *models.User) {
	next := NextStreak(u.Streak, s.now())
	if next.Count == u.Streak.Count && sameDay(next.LastActive, u.Streak.LastActive) {
		return
	}
	if err := s.store.UpdateStreak(ctx, u.ID, next); err != nil {
		s.logger.Warn("streak update failed", "user_id", u.ID, "error", err)
		return
	}
	u.Streak = next
}

// NextStreak returns the streak after activity at now: consecutive days
// extend it, a repeat on the same day keeps it, a gap resets it to one.
func NextStreak(cur models.Streak, now time.Time) models.Streak {
	today := utcDay(now)
	if cur.LastActive == nil {
		return models.Streak{Count: 1, LastActive: &today}
	}
	last := utcDay(*cur.LastActive)
	switch {
	case last.Equal(today):
		return models.Streak{Count: max(cur.Count, 1), LastActive: &today}
	case last.AddDate(0, 0, 1).Equal(today):
		return models.Streak{Count: cur.Count + 1, LastActive: &today}
	default:
		return models.Streak{Count: 1, LastActive: &today}
	}
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return utcDay(*a).Equal(utcDay(*b))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
