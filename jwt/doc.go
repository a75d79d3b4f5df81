// Package jwt issues and verifies the compact signed tokens used for
// access, refresh, and password-reset credentials.
//
// A [Codec] binds one secret to one lifetime. The engine holds three
// codecs with disjoint secrets; a token signed for one purpose never
// verifies under another codec.
//
// Verification is deliberately lossy about failure causes: signature
// mismatch, malformed input, and elapsed expiry all surface as
// [ErrTokenInvalid]. Revocation is not this package's concern. A
// verified refresh or reset token is only honored after the engine
// checks its cache counterpart.
package jwt
