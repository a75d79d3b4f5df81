package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/bozorapp/bozor/secrets"
)

// Refresh exchanges a valid, non-revoked refresh token for a new pair,
// rotating the cached token. The rotation is an atomic compare-and-swap
// keyed on the presented token: of any set of concurrent calls with the
// same token, exactly one succeeds and the rest report ErrRefreshInvalid.
// The old refresh token is dead the moment the swap commits.
func (e *Engine) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	claims, err := e.refresh.Verify(presented)
	if err != nil {
		return nil, ErrRefreshInvalid
	}

	user, err := e.userByID(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Identity deleted after issuance; the token is an orphan.
		return nil, ErrRefreshInvalid
	}

	pair, err := e.issuePair(user)
	if err != nil {
		return nil, err
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	key := e.cache.RefreshKey(user.ID)
	err = e.cache.CompareAndSwap(opctx, key, presented, pair.RefreshToken, e.config.RefreshTTL)
	switch {
	case err == nil:
		return pair, nil
	case errors.Is(err, secrets.ErrNotFound), errors.Is(err, secrets.ErrMismatch):
		return nil, ErrRefreshInvalid
	default:
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
}

// Revoke deletes the identity's cached refresh token, invalidating every
// outstanding refresh token immediately. Logout support; access tokens
// already issued remain valid until their own expiry.
func (e *Engine) Revoke(ctx context.Context, userID string) error {
	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	if err := e.cache.Delete(opctx, e.cache.RefreshKey(userID)); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
