package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const mysqlErrDuplicateEntry = 1062

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

func CreateTables(ctx context.Context, db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id                    VARCHAR(36) PRIMARY KEY,
			email                 VARCHAR(255) NOT NULL,
			password              VARCHAR(255) NOT NULL,
			full_name             VARCHAR(100) NOT NULL,
			bio                   TEXT NOT NULL,
			profile_pic           VARCHAR(512) NOT NULL DEFAULT '',
			native_language       VARCHAR(16) NOT NULL,
			learning_languages    JSON NOT NULL,
			time_zone             VARCHAR(64) NOT NULL DEFAULT '',
			availability          JSON NOT NULL,
			location              VARCHAR(255) NOT NULL DEFAULT '',
			has_completed_profile BOOLEAN NOT NULL DEFAULT FALSE,
			streak_count          INT NOT NULL DEFAULT 0,
			streak_last_active    DATE NULL,
			created_at            DATETIME NOT NULL,
			updated_at            DATETIME NOT NULL,
			UNIQUE KEY uk_email (email),
			INDEX idx_completed (has_completed_profile)
		)`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
			id          VARCHAR(36) PRIMARY KEY,
			pair_key    VARCHAR(73) NOT NULL,
			sender_id   VARCHAR(36) NOT NULL,
			recipient_id VARCHAR(36) NOT NULL,
			status      ENUM('pending', 'accepted', 'rejected') NOT NULL DEFAULT 'pending',
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL,
			UNIQUE KEY uk_pair (pair_key),
			INDEX idx_recipient_status (recipient_id, status),
			INDEX idx_sender_status (sender_id, status)
		)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			pair_key    VARCHAR(73) PRIMARY KEY,
			user_a      VARCHAR(36) NOT NULL,
			user_b      VARCHAR(36) NOT NULL,
			created_at  DATETIME NOT NULL,
			INDEX idx_user_a (user_a),
			INDEX idx_user_b (user_b)
		)`,
		`CREATE TABLE IF NOT EXISTS blocked_users (
			user_id     VARCHAR(36) NOT NULL,
			blocked_id  VARCHAR(36) NOT NULL,
			created_at  DATETIME NOT NULL,
			PRIMARY KEY (user_id, blocked_id)
		)`,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// Store implements the service stores on top of MySQL.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry
}
