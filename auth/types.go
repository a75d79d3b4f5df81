package auth

import "context"

// Roles assignable to an identity.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Identity is the engine's view of a stored user record.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string
}

// TokenPair is the result of every successful token issuance.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserStore is the credential store contract. Lookups return (nil, nil)
// when no identity matches; Create reports a duplicate email as
// [ErrEmailTaken].
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, name, role string) (*Identity, error)
	ByEmail(ctx context.Context, email string) (*Identity, error)
	ByID(ctx context.Context, id string) (*Identity, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}
