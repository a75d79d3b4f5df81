package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bozorapp/bozor/jwt"
	"github.com/bozorapp/bozor/mail"
	"github.com/bozorapp/bozor/password"
	"github.com/bozorapp/bozor/secrets"
)

// Engine orchestrates the authentication flows. Construct through
// [Builder.Build]; zero values are not usable.
type Engine struct {
	config  Config
	access  *jwt.Codec
	refresh *jwt.Codec
	reset   *jwt.Codec
	hasher  *password.Hasher
	cache   *secrets.Store
	users   UserStore
	mailer  mail.Sender
	logger  *slog.Logger
}

// opCtx bounds a collaborator call with the configured timeout.
func (e *Engine) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.OpTimeout)
}

// Register creates an identity with the default role and logs it in.
// A taken email reports ErrEmailTaken.
func (e *Engine) Register(ctx context.Context, email, plaintext, name string) (*TokenPair, error) {
	existing, err := e.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	user, err := e.users.Create(opctx, email, hash, name, RoleUser)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return e.generateTokens(ctx, user)
}

// Login verifies the credentials and issues a token pair. Unknown email
// and wrong password are indistinguishable by design.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (*TokenPair, error) {
	user, err := e.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	e.maybeRehash(ctx, user, plaintext)

	return e.generateTokens(ctx, user)
}

// maybeRehash upgrades the stored digest after a successful login when
// hashing parameters have been strengthened. Best effort: a failure is
// logged and the login proceeds.
func (e *Engine) maybeRehash(ctx context.Context, user *Identity, plaintext string) {
	upgrade, err := e.hasher.NeedsRehash(user.PasswordHash)
	if err != nil || !upgrade {
		return
	}
	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return
	}
	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	if err := e.users.UpdatePasswordHash(opctx, user.ID, hash); err != nil {
		e.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID)
	}
}

// generateTokens issues an access/refresh pair and records the refresh
// token in the cache, overwriting (and thereby revoking) any prior one.
// The cache write fails closed: no pair is returned without it.
func (e *Engine) generateTokens(ctx context.Context, user *Identity) (*TokenPair, error) {
	pair, err := e.issuePair(user)
	if err != nil {
		return nil, err
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	key := e.cache.RefreshKey(user.ID)
	if err := e.cache.Set(opctx, key, pair.RefreshToken, e.config.RefreshTTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return pair, nil
}

func (e *Engine) issuePair(user *Identity) (*TokenPair, error) {
	accessToken, err := e.access.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := e.refresh.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyAccess validates an access token and returns its claims. Used by
// the HTTP guard; validity is purely signature plus expiry.
func (e *Engine) VerifyAccess(token string) (*jwt.Claims, error) {
	claims, err := e.access.Verify(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

func (e *Engine) userByEmail(ctx context.Context, email string) (*Identity, error) {
	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	user, err := e.users.ByEmail(opctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return user, nil
}

func (e *Engine) userByID(ctx context.Context, id string) (*Identity, error) {
	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	user, err := e.users.ByID(opctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return user, nil
}
