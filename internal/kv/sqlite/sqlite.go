// Package sqlite is the durable kv.Store backend. Each key is one row of the
// kv table, addressed by (kind, owner).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"financas/internal/kv"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ kv.Store = (*Store)(nil)

// Open creates the database directory if needed, applies migrations and
// returns a ready store.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// CLI invocations may overlap; wait for the writer instead of failing.
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		slog.Warn("Failed to set sqlite busy timeout", "error", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key kv.Key) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE kind = ? AND owner = ?`,
		string(key.Kind), key.Owner).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key kv.Key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (kind, owner, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(kind, owner) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, string(key.Kind), key.Owner, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	slog.DebugContext(ctx, "Value stored in SQLite", "key", key.String(), "bytes", len(value))
	return nil
}

func (s *Store) Remove(ctx context.Context, key kv.Key) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE kind = ? AND owner = ?`,
		string(key.Kind), key.Owner)
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
