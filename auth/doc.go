// Package auth implements the authentication engine: registration,
// login, refresh-token rotation, and the password update and reset
// flows.
//
// The [Engine] coordinates four collaborators behind interfaces and
// small packages: a [UserStore] (credential records), a secrets.Store
// (Redis cache holding the single live refresh and reset token per
// identity), jwt codecs (one disjoint secret per token purpose), and a
// mail.Sender (reset-link delivery). It is built once through [Builder]
// and is safe for concurrent use.
//
// # Token model
//
// Access tokens are stateless: validity is signature plus expiry.
// Refresh and reset tokens additionally require an exact match against
// their cache entry, which makes them revocable: overwriting or deleting
// the entry kills every previously issued token of that kind for the
// identity, however long its signature would remain valid. Refresh
// rotation and reset consumption go through atomic compare-and-swap /
// compare-and-delete on the cache, so presenting the same token twice
// concurrently has exactly one winner.
//
// # Failure taxonomy
//
// Operations fail with the sentinel errors in errors.go. Login maps
// unknown email and wrong password to the same [ErrInvalidCredentials]
// so callers cannot probe which accounts exist. Collaborator outages
// surface as [ErrStoreUnavailable], [ErrCacheUnavailable], or
// [ErrMailUnavailable]; no operation returns a partial success.
package auth
