package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/felixbrock/promptstudio/internal/history"
)

const createKVTableSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`

const upsertKVSQL = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SQLiteStore keeps history values in a single kv table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec(createKVTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, upsertKVSQL, key, value, time.Now().UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)

	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}

// Update runs fn inside a BEGIN IMMEDIATE transaction, which holds the
// database write lock from the read to the commit. Other writers wait on
// busy_timeout.
func (s *SQLiteStore) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) (err error) {
	conn, err := s.db.Conn(ctx)

	if err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}

	defer conn.Close()

	_, err = conn.ExecContext(ctx, `BEGIN IMMEDIATE`)

	if err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}

	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
		}
	}()

	var current []byte
	err = conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&current)

	if errors.Is(err, sql.ErrNoRows) {
		current = nil
	} else if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}

	next, err := fn(current)

	if err != nil {
		return err
	}

	if next == nil {
		_, err = conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	} else {
		_, err = conn.ExecContext(ctx, upsertKVSQL, key, next, time.Now().UTC().Format(time.RFC3339))
	}

	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	_, err = conn.ExecContext(ctx, `COMMIT`)

	if err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
