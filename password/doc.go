// Package password implements one-way password hashing and verification
// with Argon2id.
//
// # Output format
//
// Digests are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The salt is drawn fresh per hash, so equal plaintexts never share a
// digest. [Hasher.NeedsRehash] reports when a stored digest was produced
// with weaker parameters than currently configured, letting the caller
// re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy
// (length rules, reuse) belongs to the auth engine and HTTP layer.
// Callers supply plaintext and receive digests; nothing is stored or
// logged here.
package password
