// Package store persists users and the commerce catalog in SQLite.
//
// It is the system of record for identities (the auth engine's
// credential store), categories, products, baskets, and orders. The
// schema is embedded and applied on [Open]; SQLite runs in WAL mode with
// foreign keys enforced.
//
// Lookups that can legitimately miss return (nil, nil); sentinel errors
// are reserved for constraint violations and invalid transitions.
package store
