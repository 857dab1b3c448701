package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lingomate/auth"
	"lingomate/database"
	"lingomate/models"
	"lingomate/presence"
	"lingomate/storage"
)

type fakePresence struct {
	mu  sync.Mutex
	ids []presence.Identity
}

func (f *fakePresence) UpsertUser(_ context.Context, id presence.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return nil
}

func (f *fakePresence) CreateToken(userID string) (string, error) { return "chat-" + userID, nil }

func (f *fakePresence) upserts() []presence.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]presence.Identity(nil), f.ids...)
}

type sentEvent struct {
	UserID string
	Type   string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeNotifier) Notify(userID, eventType string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{UserID: userID, Type: eventType})
}

type testEnv struct {
	store    *database.MemoryStore
	presence *fakePresence
	syncer   *presence.Syncer
	notifier *fakeNotifier
	issuer   *auth.Issuer
	auth     *AuthService
	profiles *ProfileService
	friends  *FriendsService
	users    *UsersService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		store:    database.NewMemoryStore(),
		presence: &fakePresence{},
		notifier: &fakeNotifier{},
		issuer:   auth.NewIssuer("test-secret"),
	}
	env.syncer = presence.NewSyncer(env.presence, time.Second, logger)
	env.auth = NewAuthService(env.store, hasher, env.issuer, env.syncer, logger)
	env.profiles = NewProfileService(env.store, local, env.syncer, logger)
	env.friends = NewFriendsService(env.store, env.store, env.notifier, logger)
	env.users = NewUsersService(env.store, env.presence, logger)
	return env
}

func (e *testEnv) signup(t *testing.T, name string) *models.User {
	t.Helper()
	u, _, err := e.auth.Signup(context.Background(), SignupInput{
		FullName:       name,
		Email:          name + "@example.com",
		Password:       "password1",
		NativeLanguage: "en",
	})
	require.NoError(t, err)
	return u
}

func validProfile(name string) models.ProfileUpdate {
	return models.ProfileUpdate{
		FullName:          name,
		Bio:               "Learning Spanish on weekends",
		NativeLanguage:    "en",
		LearningLanguages: []models.LearningLanguage{{Code: "es", Level: models.LevelBeginner}},
		TimeZone:          "Europe/Madrid",
		Availability:      []models.AvailabilitySlot{{DayOfWeek: "Sat", From: "09:00", To: "11:30"}},
		Location:          "Madrid",
	}
}

func (e *testEnv) completed(t *testing.T, name string) *models.User {
	t.Helper()
	u := e.signup(t, name)
	u, err := e.profiles.CompleteProfile(context.Background(), u.ID, validProfile(name))
	require.NoError(t, err)
	return u
}
