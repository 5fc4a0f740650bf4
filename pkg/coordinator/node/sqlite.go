package node

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/windowlimit/pkg/coordinator"
)

// SQLiteStore keeps counters in a SQLite database file.
type SQLiteStore struct {
	db        *sql.DB
	now       func() time.Time
	logger    *slog.Logger
	closeOnce sync.Once
}

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file. Required.
	Path string

	// BusyTimeout is how long to wait for locks.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Now is the clock used for expiry. Default: time.Now.
	Now func() time.Time

	// Logger. Default: slog.Default().
	Logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database and its schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection keeps increments serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:     db,
		now:    cfg.Now,
		logger: cfg.Logger.With("component", "coordinator.sqlite"),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS window_counters (
		window_key TEXT PRIMARY KEY,
		value INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS window_replies (
		window_key TEXT NOT NULL,
		idempotency_key TEXT NOT NULL,
		current INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		PRIMARY KEY (window_key, idempotency_key)
	);

	CREATE INDEX IF NOT EXISTS idx_counters_expires_at ON window_counters(expires_at);
	CREATE INDEX IF NOT EXISTS idx_replies_expires_at ON window_replies(expires_at);
	`)
	return err
}

// Increment implements Store.
func (s *SQLiteStore) Increment(ctx context.Context, inc Increment) (result coordinator.Result, err error) {
	now := s.now().UnixMilli()
	reset := inc.Reset.UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coordinator.Result{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if inc.IdempotencyKey != "" {
		var passed int64
		err = tx.QueryRowContext(ctx, `
			SELECT current, passed FROM window_replies
			WHERE window_key = ? AND idempotency_key = ? AND expires_at > ?
		`, inc.Key, inc.IdempotencyKey, now).Scan(&result.Current, &passed)
		switch {
		case err == nil:
			result.Passed = passed == 1
			return result, tx.Commit()
		case !errors.Is(err, sql.ErrNoRows):
			return coordinator.Result{}, fmt.Errorf("failed to load reply: %w", err)
		}
	}

	var current int64
	err = tx.QueryRowContext(ctx, `
		SELECT value FROM window_counters WHERE window_key = ? AND expires_at > ?
	`, inc.Key, now).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return coordinator.Result{}, fmt.Errorf("failed to load counter: %w", err)
	}

	result = admit(current, inc)
	if result.Passed {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO window_counters (window_key, value, expires_at) VALUES (?, ?, ?)
			ON CONFLICT (window_key) DO UPDATE SET
				value = excluded.value,
				expires_at = excluded.expires_at
		`, inc.Key, result.Current, reset)
		if err != nil {
			return coordinator.Result{}, fmt.Errorf("failed to save counter: %w", err)
		}
	}

	if inc.IdempotencyKey != "" {
		passed := 0
		if result.Passed {
			passed = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO window_replies (window_key, idempotency_key, current, passed, expires_at)
			VALUES (?, ?, ?, ?, ?)
		`, inc.Key, inc.IdempotencyKey, result.Current, passed, reset)
		if err != nil {
			return coordinator.Result{}, fmt.Errorf("failed to save reply: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return coordinator.Result{}, fmt.Errorf("failed to commit: %w", err)
	}
	return result, nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Sweep implements Store.
func (s *SQLiteStore) Sweep(now time.Time) int {
	cutoff := now.UnixMilli()

	res, err := s.db.Exec(`DELETE FROM window_counters WHERE expires_at <= ?`, cutoff)
	if err != nil {
		s.logger.Error("failed to sweep counters", "error", err)
		return 0
	}
	if _, err := s.db.Exec(`DELETE FROM window_replies WHERE expires_at <= ?`, cutoff); err != nil {
		s.logger.Error("failed to sweep replies", "error", err)
	}

	n, _ := res.RowsAffected()
	return int(n)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}
