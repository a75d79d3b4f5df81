// Package secrets provides the Redis-backed store for short-lived
// credentials: the single live refresh token and the single live
// password-reset token per identity.
//
// The cache is the revocation authority. A signed token whose cache
// counterpart is absent or different is dead, regardless of its
// remaining signature validity. Keys carry a per-key TTL; Redis expiry
// is the only garbage collection.
//
// [Store.CompareAndSwap] and [Store.CompareAndDelete] run as WATCH-guarded
// transactions so that refresh rotation and reset consumption are atomic
// per key: two concurrent calls presenting the same value cannot both
// succeed.
package secrets
