package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrDuplicateEmail reports a unique-constraint violation on users.email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound reports that a referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports an invalid state transition or constraint breach.
	ErrConflict = errors.New("conflicting state")
	// ErrInvalid reports rejected input. Callers may show its text.
	ErrInvalid = errors.New("invalid input")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name          TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	parent_id TEXT REFERENCES categories(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price       INTEGER NOT NULL,
	stock       INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'available',
	category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS baskets (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS basket_items (
	basket_id  TEXT NOT NULL REFERENCES baskets(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	quantity   INTEGER NOT NULL CHECK (quantity > 0),
	PRIMARY KEY (basket_id, product_id)
);

CREATE TABLE IF NOT EXISTS orders (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	status     TEXT NOT NULL DEFAULT 'pending',
	total      INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
	order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	quantity   INTEGER NOT NULL CHECK (quantity > 0),
	price      INTEGER NOT NULL,
	PRIMARY KEY (order_id, product_id)
);
`

// Store wraps the SQLite handle. All methods are safe for concurrent use.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies
// the embedded schema. Use ":memory:" for an in-process database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	memory := path == ":memory:"
	var dsn string
	if memory {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else {
		dsn = "file:" + filepath.Clean(path) +
			"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if memory {
		// Every pooled connection would otherwise get its own empty
		// in-memory database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
