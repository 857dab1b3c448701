package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lingomate/models"
)

const userColumns = `id, email, password, full_name, bio, profile_pic, native_language,
	learning_languages, time_zone, availability, location, has_completed_profile,
	streak_count, streak_last_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u          models.User
		langsJSON  []byte
		availJSON  []byte
		lastActive sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.FullName, &u.Bio, &u.ProfilePic, &u.NativeLanguage,
		&langsJSON, &u.TimeZone, &availJSON, &u.Location, &u.HasCompletedProfile,
		&u.Streak.Count, &lastActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(langsJSON) > 0 {
		if err := json.Unmarshal(langsJSON, &u.LearningLanguages); err != nil {
			return nil, fmt.Errorf("decode learning_languages: %w", err)
		}
	}
	if len(availJSON) > 0 {
		if err := json.Unmarshal(availJSON, &u.Availability); err != nil {
			return nil, fmt.Errorf("decode availability: %w", err)
		}
	}
	if lastActive.Valid {
		t := lastActive.Time
		u.Streak.LastActive = &t
	}
	return &u, nil
}

func encodeJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte("[]"), nil
	}
	return b, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	langs, err := encodeJSON(u.LearningLanguages)
	if err != nil {
		return fmt.Errorf("encode learning_languages: %w", err)
	}
	avail, err := encodeJSON(u.Availability)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password, full_name, bio, profile_pic, native_language,
			learning_languages, time_zone, availability, location, has_completed_profile,
			streak_count, streak_last_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Password, u.FullName, u.Bio, u.ProfilePic, u.NativeLanguage,
		langs, u.TimeZone, avail, u.Location, u.HasCompletedProfile,
		u.Streak.Count, u.Streak.LastActive, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return models.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.loadRelations(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if err := s.loadRelations(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUsersByIDs returns the users that exist among ids. Relationship sets
// are not loaded.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders+") ORDER BY full_name", args...)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// ListCandidates returns completed profiles that are not userID, a friend of
// userID, or blocked by userID. Relationship sets are not loaded.
func (s *Store) ListCandidates(ctx context.Context, userID string) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users u
		WHERE u.id <> ?
		  AND u.has_completed_profile = TRUE
		  AND NOT EXISTS (
			SELECT 1 FROM friendships f
			WHERE (f.user_a = ? AND f.user_b = u.id) OR (f.user_b = ? AND f.user_a = u.id)
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM blocked_users b WHERE b.user_id = ? AND b.blocked_id = u.id
		  )
		ORDER BY u.created_at DESC`,
		userID, userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]*models.User, error) {
	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate, when time.Time) error {
	langs, err := encodeJSON(p.LearningLanguages)
	if err != nil {
		return fmt.Errorf("encode learning_languages: %w", err)
	}
	avail, err := encodeJSON(p.Availability)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET full_name = ?, bio = ?, native_language = ?, learning_languages = ?,
			time_zone = ?, availability = ?, location = ?,
			profile_pic = COALESCE(NULLIF(?, ''), profile_pic),
			has_completed_profile = TRUE, updated_at = ?
		WHERE id = ?`,
		p.FullName, p.Bio, p.NativeLanguage, langs, p.TimeZone, avail, p.Location,
		p.ProfilePic, when, id,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return requireAffected(res, "update profile")
}

func (s *Store) SetProfilePic(ctx context.Context, id, url string, when time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET profile_pic = ?, updated_at = ? WHERE id = ?", url, when, id)
	if err != nil {
		return fmt.Errorf("set profile pic: %w", err)
	}
	return requireAffected(res, "set profile pic")
}

func (s *Store) UpdateStreak(ctx context.Context, id string, streak models.Streak) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET streak_count = ?, streak_last_active = ? WHERE id = ?",
		streak.Count, streak.LastActive, id)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	return nil
}

func (s *Store) AddBlocked(ctx context.Context, userID, blockedID string, when time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT IGNORE INTO blocked_users (user_id, blocked_id, created_at) VALUES (?, ?, ?)",
		userID, blockedID, when)
	if err != nil {
		return fmt.Errorf("block user: %w", err)
	}
	return nil
}

func (s *Store) RemoveBlocked(ctx context.Context, userID, blockedID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM blocked_users WHERE user_id = ? AND blocked_id = ?", userID, blockedID)
	if err != nil {
		return fmt.Errorf("unblock user: %w", err)
	}
	return nil
}

// loadRelations fills the friends and blocked-user sets of u.
func (s *Store) loadRelations(ctx context.Context, u *models.User) error {
	friends, err := s.ListFriendIDs(ctx, u.ID)
	if err != nil {
		return err
	}
	u.Friends = friends

	rows, err := s.db.QueryContext(ctx,
		"SELECT blocked_id FROM blocked_users WHERE user_id = ? ORDER BY created_at", u.ID)
	if err != nil {
		return fmt.Errorf("list blocked: %w", err)
	}
	defer rows.Close()

	blocked := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan blocked: %w", err)
		}
		blocked = append(blocked, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate blocked: %w", err)
	}
	u.BlockedUsers = blocked
	return nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
