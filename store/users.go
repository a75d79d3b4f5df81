package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// User is a stored identity. PasswordHash is the argon2id PHC digest;
// plaintext never reaches this package.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    time.Time
}

// CreateUser inserts a new identity with a generated UUID. A duplicate
// email surfaces as ErrDuplicateEmail.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash, name, role string) (*User, error) {
	user := &User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(name),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Role, user.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

// UserByEmail returns the identity with the given email, or (nil, nil).
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, role, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	))
}

// UserByID returns the identity with the given id, or (nil, nil).
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, role, created_at FROM users WHERE id = ?`,
		id,
	))
}

// UpdatePasswordHash atomically replaces the stored digest.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateUserRole changes an identity's role.
func (s *Store) UpdateUserRole(ctx context.Context, id, role string) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ListUsers returns all identities ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, email, password_hash, name, role, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var created int64
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &created); err != nil {
			return nil, err
		}
		u.CreatedAt = fromMillis(created)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	var created int64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
