package database

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingomate/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewStore(db), mock
}

var duplicateEntry = &mysql.MySQLError{Number: mysqlErrDuplicateEntry, Message: "Duplicate entry"}

var userCols = []string{
	"id", "email", "password", "full_name", "bio", "profile_pic", "native_language",
	"learning_languages", "time_zone", "availability", "location", "has_completed_profile",
	"streak_count", "streak_last_active", "created_at", "updated_at",
}

func TestStore_CreateUserDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO users").WillReturnError(duplicateEntry)

	err := s.CreateUser(context.Background(), &models.User{ID: "u1", Email: "a@b.co"})
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestStore_GetUserByID(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("FROM users WHERE id = ").WithArgs("u1").WillReturnRows(
		sqlmock.NewRows(userCols).AddRow(
			"u1", "a@b.co", "hash", "Ana", "bio", "pic", "es",
			[]byte(`[{"code":"en","level":"beginner","learningSince":"2024-01-15"}]`), "Europe/Madrid",
			[]byte(`[{"dayOfWeek":"Mon","from":"09:00","to":"10:00"}]`), "Madrid", true,
			3, now, now, now,
		))
	mock.ExpectQuery("SELECT user_b FROM friendships").WithArgs("u1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u2"))
	mock.ExpectQuery("SELECT blocked_id FROM blocked_users").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"blocked_id"}).AddRow("u3"))

	u, err := s.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.FullName)
	require.Len(t, u.LearningLanguages, 1)
	assert.Equal(t, models.LevelBeginner, u.LearningLanguages[0].Level)
	require.NotNil(t, u.LearningLanguages[0].LearningSince)
	assert.Equal(t, 2024, u.LearningLanguages[0].LearningSince.Year())
	assert.Equal(t, "Mon", u.Availability[0].DayOfWeek)
	assert.Equal(t, 3, u.Streak.Count)
	assert.Equal(t, []string{"u2"}, u.Friends)
	assert.Equal(t, []string{"u3"}, u.BlockedUsers)
}

func TestStore_GetUserByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM users WHERE id = ").WithArgs("nope").WillReturnRows(sqlmock.NewRows(userCols))

	_, err := s.GetUserByID(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_UpdateProfileMissingUser(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE users SET full_name").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateProfile(context.Background(), "nope", models.ProfileUpdate{}, time.Now())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_CreateRequestDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO friend_requests").
		WithArgs("r1", models.PairKey("b", "a"), "b", "a", models.RequestPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(duplicateEntry)

	err := s.CreateRequest(context.Background(), &models.FriendRequest{
		ID: "r1", Sender: "b", Recipient: "a", Status: models.RequestPending,
	})
	assert.ErrorIs(t, err, models.ErrRequestExists)
}

func TestStore_AcceptRequest(t *testing.T) {
	s, mock := newMockStore(t)
	req := &models.FriendRequest{ID: "r1", Sender: "b", Recipient: "a"}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE friend_requests SET status = 'accepted'").
		WithArgs(sqlmock.AnyArg(), "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT IGNORE INTO friendships").
		WithArgs("a|b", "a", "b", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := s.AcceptRequest(context.Background(), req, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_AcceptRequestNotPending(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE friend_requests SET status = 'accepted'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ok, err := s.AcceptRequest(context.Background(), &models.FriendRequest{ID: "r1", Sender: "a", Recipient: "b"}, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_CancelRequest(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM friend_requests WHERE id = (.+) AND status = 'pending'").
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.CancelRequest(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_RemoveFriendship(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM friendships").WithArgs("a|b").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM friend_requests WHERE pair_key").WithArgs("a|b").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := s.RemoveFriendship(context.Background(), "b", "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_AreFriends(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("a|b").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.AreFriends(context.Background(), "b", "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_RejectRequest(t *testing.T) {
	s, mock := newMockStore(t)
	guarded := regexp.QuoteMeta("UPDATE friend_requests SET status = 'rejected', updated_at = ? WHERE id = ? AND status = 'pending'")

	mock.ExpectExec(guarded).WithArgs(sqlmock.AnyArg(), "r1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(guarded).WithArgs(sqlmock.AnyArg(), "r1").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.RejectRequest(context.Background(), "r1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.RejectRequest(context.Background(), "r1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "a request that is no longer pending is left alone")
}

var requestCols = []string{"id", "sender_id", "recipient_id", "status", "created_at", "updated_at"}

func TestStore_ListIncomingPendingOnly(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM friend_requests WHERE recipient_id = ? AND status = 'pending' ORDER BY created_at DESC")).
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows(requestCols).AddRow("r1", "b", "a", "pending", now, now))

	reqs, err := s.ListIncoming(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "b", reqs[0].Sender)
	assert.Equal(t, models.RequestPending, reqs[0].Status)
}

func TestStore_ListOutgoing(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM friend_requests WHERE sender_id = ? AND status = 'pending' ORDER BY")).
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows(requestCols).AddRow("r1", "a", "b", "pending", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM friend_requests WHERE sender_id = ? ORDER BY")).
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows(requestCols).
			AddRow("r1", "a", "b", "pending", now, now).
			AddRow("r2", "a", "c", "rejected", now, now))

	pending, err := s.ListOutgoing(context.Background(), "a", true)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := s.ListOutgoing(context.Background(), "a", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.RequestRejected, all[1].Status)
}

func TestStore_ListCandidates(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	parts := []string{
		"FROM users u WHERE u.id <> ? AND u.has_completed_profile = TRUE",
		"NOT EXISTS ( SELECT 1 FROM friendships f WHERE (f.user_a = ? AND f.user_b = u.id) OR (f.user_b = ? AND f.user_a = u.id) )",
		"NOT EXISTS ( SELECT 1 FROM blocked_users b WHERE b.user_id = ? AND b.blocked_id = u.id )",
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = regexp.QuoteMeta(p)
	}

	mock.ExpectQuery(strings.Join(quoted, ".+")).
		WithArgs("me", "me", "me", "me").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"u2", "b@b.co", "hash", "Bo", "", "", "en",
			nil, "UTC", nil, "", true,
			0, nil, now, now,
		))

	users, err := s.ListCandidates(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID)
	assert.True(t, users[0].HasCompletedProfile)
}
