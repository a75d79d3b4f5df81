package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/bozorapp/bozor/secrets"
)

// UpdatePassword changes an authenticated user's password after
// verifying the current one. Outstanding refresh tokens stay valid;
// revocation on password change is deliberately not performed.
func (e *Engine) UpdatePassword(ctx context.Context, userID, current, next string) error {
	user, err := e.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(current, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	hash, err := e.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	if err := e.users.UpdatePasswordHash(opctx, user.ID, hash); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ForgotPassword issues a short-lived reset token for the email's
// identity, caches it (revoking any prior reset token), and dispatches
// the reset link. Delivery is synchronous: a mail failure fails the
// operation. Unknown emails report ErrUserNotFound.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	user, err := e.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	token, err := e.reset.Issue(user.ID, user.Email, "")
	if err != nil {
		return err
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	if err := e.cache.Set(opctx, e.cache.ResetKey(user.ID), token, e.config.ResetTTL); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	mailctx, cancelMail := e.opCtx(ctx)
	defer cancelMail()
	if err := e.mailer.SendPasswordReset(mailctx, user.Email, token); err != nil {
		return fmt.Errorf("%w: %v", ErrMailUnavailable, err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password. The
// cache entry is removed in the same compare-and-delete that validates
// it, so a token can never reset twice even while its signature remains
// valid.
func (e *Engine) ResetPassword(ctx context.Context, token, next string) error {
	claims, err := e.reset.Verify(token)
	if err != nil {
		return ErrResetInvalid
	}

	// Hash before consuming the cache entry so a rejected new password
	// does not burn the single-use token.
	hash, err := e.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	// Consuming the token before the store write means a store outage
	// here burns it and the user must request a new link. The reverse
	// order would open a replay window between write and delete.
	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	err = e.cache.CompareAndDelete(opctx, e.cache.ResetKey(claims.UID), token)
	switch {
	case err == nil:
	case errors.Is(err, secrets.ErrNotFound), errors.Is(err, secrets.ErrMismatch):
		return ErrResetInvalid
	default:
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	user, err := e.userByID(ctx, claims.UID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	storectx, cancelStore := e.opCtx(ctx)
	defer cancelStore()
	if err := e.users.UpdatePasswordHash(storectx, user.ID, hash); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
