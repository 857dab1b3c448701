package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingomate/auth"
	"lingomate/models"
)

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, token, err := env.auth.Signup(ctx, SignupInput{
		FullName:       "Ana Pérez",
		Email:          "  Ana@Example.com ",
		Password:       "secret12",
		NativeLanguage: "es",
	})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", u.Email)
	assert.False(t, u.HasCompletedProfile)
	assert.Empty(t, u.Password)
	assert.True(t, strings.HasPrefix(u.ProfilePic, "https://api.dicebear.com/7.x/adventurer/svg?seed="))

	id, err := env.issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	stored, err := env.store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret12", stored.Password)
	assert.True(t, strings.HasPrefix(stored.Password, "$2"))

	require.NoError(t, env.syncer.Wait(ctx))
	require.Len(t, env.presence.upserts(), 1)
	assert.Equal(t, u.ID, env.presence.upserts()[0].ID)
	assert.Equal(t, "Ana Pérez", env.presence.upserts()[0].Name)
}

func TestSignup_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		in   SignupInput
		msg  string
	}{
		{"missing name", SignupInput{Email: "a@b.co", Password: "1234567", NativeLanguage: "en"}, "All fields are required."},
		{"missing language", SignupInput{FullName: "A", Email: "a@b.co", Password: "1234567"}, "All fields are required."},
		{"short password", SignupInput{FullName: "A", Email: "a@b.co", Password: "123456", NativeLanguage: "en"}, "Password must be at least 7 characters long."},
		{"bad email", SignupInput{FullName: "A", Email: "not-an-email", Password: "1234567", NativeLanguage: "en"}, "Invalid email format."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.auth.Signup(context.Background(), tt.in)
			require.ErrorIs(t, err, models.ErrValidation)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ana")

	_, _, err := env.auth.Signup(context.Background(), SignupInput{
		FullName:       "Other",
		Email:          "ANA@example.com",
		Password:       "password1",
		NativeLanguage: "en",
	})
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.signup(t, "ana")

	u, token, err := env.auth.Login(ctx, "ANA@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.NotEmpty(t, token)
	assert.Equal(t, 1, u.Streak.Count)

	_, _, err = env.auth.Login(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Equal(t, "Invalid email or password.", err.Error())

	_, _, err = env.auth.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, _, err = env.auth.Login(ctx, "", "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestLogin_StreakAcrossDays(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "ana")

	day := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	env.auth.now = func() time.Time { return day }
	u, _, err := env.auth.Login(ctx, "ana@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Streak.Count)

	env.auth.now = func() time.Time { return day.Add(24 * time.Hour) }
	u, _, err = env.auth.Login(ctx, "ana@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, 2, u.Streak.Count)
}

func TestNextStreak(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	at := func(days int) *time.Time {
		d := now.AddDate(0, 0, days)
		return &d
	}

	tests := []struct {
		name string
		cur  models.Streak
		want int
	}{
		{"first activity", models.Streak{}, 1},
		{"same day", models.Streak{Count: 4, LastActive: at(0)}, 4},
		{"yesterday", models.Streak{Count: 4, LastActive: at(-1)}, 5},
		{"gap", models.Streak{Count: 4, LastActive: at(-3)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextStreak(tt.cur, now)
			assert.Equal(t, tt.want, got.Count)
			require.NotNil(t, got.LastActive)
			assert.Equal(t, utcDay(now), *got.LastActive)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.signup(t, "ana")

	token, err := env.issuer.Issue(created.ID)
	require.NoError(t, err)
	u, err := env.auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.Empty(t, u.Password)

	_, err = env.auth.Authenticate(ctx, "bogus")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	ghost, err := env.issuer.Issue("ghost")
	require.NoError(t, err)
	_, err = env.auth.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
