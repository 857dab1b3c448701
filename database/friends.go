package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lingomate/models"
)

const requestColumns = "id, sender_id, recipient_id, status, created_at, updated_at"

func scanRequest(row rowScanner) (*models.FriendRequest, error) {
	var r models.FriendRequest
	if err := row.Scan(&r.ID, &r.Sender, &r.Recipient, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateRequest(ctx context.Context, r *models.FriendRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO friend_requests (id, pair_key, sender_id, recipient_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, models.PairKey(r.Sender, r.Recipient), r.Sender, r.Recipient, r.Status, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return models.ErrRequestExists
		}
		return fmt.Errorf("insert friend request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*models.FriendRequest, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM friend_requests WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get friend request: %w", err)
	}
	return r, nil
}

// FindRequestBetween returns the request for the unordered pair {a, b},
// whichever direction it was sent in.
func (s *Store) FindRequestBetween(ctx context.Context, a, b string) (*models.FriendRequest, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM friend_requests WHERE pair_key = ?", models.PairKey(a, b)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find friend request: %w", err)
	}
	return r, nil
}

// AcceptRequest moves a pending request to accepted and records the
// friendship edge in one transaction. It reports false when the request was
// no longer pending.
func (s *Store) AcceptRequest(ctx context.Context, r *models.FriendRequest, when time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin accept: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE friend_requests SET status = 'accepted', updated_at = ? WHERE id = ? AND status = 'pending'",
		when, r.ID)
	if err != nil {
		return false, fmt.Errorf("accept friend request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("accept friend request: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := insertFriendship(ctx, tx, r.Sender, r.Recipient, when); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit accept: %w", err)
	}
	return true, nil
}

func (s *Store) RejectRequest(ctx context.Context, id string, when time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE friend_requests SET status = 'rejected', updated_at = ? WHERE id = ? AND status = 'pending'",
		when, id)
	if err != nil {
		return false, fmt.Errorf("reject friend request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reject friend request: %w", err)
	}
	return n > 0, nil
}

func (s *Store) CancelRequest(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM friend_requests WHERE id = ? AND status = 'pending'", id)
	if err != nil {
		return false, fmt.Errorf("cancel friend request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel friend request: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListIncoming(ctx context.Context, userID string) ([]*models.FriendRequest, error) {
	return s.listRequests(ctx,
		"SELECT "+requestColumns+" FROM friend_requests WHERE recipient_id = ? AND status = 'pending' ORDER BY created_at DESC",
		userID)
}

func (s *Store) ListOutgoing(ctx context.Context, userID string, pendingOnly bool) ([]*models.FriendRequest, error) {
	query := "SELECT " + requestColumns + " FROM friend_requests WHERE sender_id = ?"
	if pendingOnly {
		query += " AND status = 'pending'"
	}
	return s.listRequests(ctx, query+" ORDER BY created_at DESC", userID)
}

func (s *Store) listRequests(ctx context.Context, query string, args ...any) ([]*models.FriendRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	out := []*models.FriendRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}
	return out, nil
}

// AddFriendship records the edge for {a, b}. It is a no-op when the edge
// already exists.
func (s *Store) AddFriendship(ctx context.Context, a, b string, when time.Time) error {
	return insertFriendship(ctx, s.db, a, b, when)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertFriendship(ctx context.Context, db execer, a, b string, when time.Time) error {
	if a > b {
		a, b = b, a
	}
	_, err := db.ExecContext(ctx,
		"INSERT IGNORE INTO friendships (pair_key, user_a, user_b, created_at) VALUES (?, ?, ?, ?)",
		models.PairKey(a, b), a, b, when)
	if err != nil {
		return fmt.Errorf("insert friendship: %w", err)
	}
	return nil
}

// RemoveFriendship deletes the edge for {a, b} together with the pair's
// request record, so either side may send a new request later.
func (s *Store) RemoveFriendship(ctx context.Context, a, b string) (bool, error) {
	key := models.PairKey(a, b)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin unfriend: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM friendships WHERE pair_key = ?", key)
	if err != nil {
		return false, fmt.Errorf("delete friendship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete friendship: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM friend_requests WHERE pair_key = ?", key); err != nil {
		return false, fmt.Errorf("delete friend request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit unfriend: %w", err)
	}
	return true, nil
}

func (s *Store) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_b FROM friendships WHERE user_a = ?
		UNION ALL
		SELECT user_a FROM friendships WHERE user_b = ?`,
		userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}
	return ids, nil
}

func (s *Store) AreFriends(ctx context.Context, a, b string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM friendships WHERE pair_key = ?)", models.PairKey(a, b)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return exists, nil
}
