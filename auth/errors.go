package auth

import "errors"

var (
	// ErrEmailTaken reports a registration attempt for an email that
	// already has an identity.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown email and wrong password
	// on login, and a failed current-password check on update. The two
	// login cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrRefreshInvalid covers every refresh failure: bad signature,
	// expiry, malformed token, revoked or rotated-out cache entry, and
	// an identity that vanished after issuance.
	ErrRefreshInvalid = errors.New("invalid refresh token")

	// ErrResetInvalid covers reset-token signature, expiry, and
	// cache-mismatch failures, including reuse of a consumed token.
	ErrResetInvalid = errors.New("invalid or expired reset token")

	// ErrPasswordPolicy reports a new password the hasher refused,
	// currently only the minimum length.
	ErrPasswordPolicy = errors.New("password does not meet policy")

	// ErrUserNotFound reports an absent identity where enumeration is
	// not a concern (forgot-password, reset-password target).
	ErrUserNotFound = errors.New("user not found")

	// ErrStoreUnavailable wraps credential-store failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")

	// ErrCacheUnavailable wraps secret-cache failures. Token issuance
	// fails closed on it: no tokens are returned unless the cache write
	// succeeded.
	ErrCacheUnavailable = errors.New("secret cache unavailable")

	// ErrMailUnavailable wraps reset-mail delivery failures.
	ErrMailUnavailable = errors.New("mail dispatch unavailable")
)
