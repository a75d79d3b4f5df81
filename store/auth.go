package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bozorapp/bozor/auth"
)

// Accounts adapts the store's user table to the auth engine. It owns
// the error translation so the engine never sees database sentinels.
type Accounts struct {
	store *Store
}

// NewAccounts wraps s for use as the auth engine's user backend.
func NewAccounts(s *Store) *Accounts {
	return &Accounts{store: s}
}

var _ auth.UserStore = (*Accounts)(nil)

func (a *Accounts) Create(ctx context.Context, email, passwordHash, name, role string) (*auth.Identity, error) {
	user, err := a.store.CreateUser(ctx, email, passwordHash, name, role)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, auth.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return identity(user), nil
}

func (a *Accounts) ByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	user, err := a.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user by email: %w", err)
	}
	return identity(user), nil
}

func (a *Accounts) ByID(ctx context.Context, id string) (*auth.Identity, error) {
	user, err := a.store.UserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user by id: %w", err)
	}
	return identity(user), nil
}

func (a *Accounts) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if err := a.store.UpdatePasswordHash(ctx, id, passwordHash); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

func identity(user *User) *auth.Identity {
	if user == nil {
		return nil
	}
	return &auth.Identity{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Name:         user.Name,
		Role:         user.Role,
	}
}
