package auth

import (
	"bytes"
	"errors"
	"time"

	"github.com/bozorapp/bozor/password"
)

// Config holds the engine's signing secrets, token lifetimes, and
// hashing parameters. It is injected at construction; the engine keeps
// no ambient global state.
type Config struct {
	// AccessSecret signs short-lived access tokens.
	AccessSecret []byte
	// RefreshSecret signs refresh tokens. Must differ from AccessSecret
	// so one token type cannot forge the other.
	RefreshSecret []byte
	// ResetSecret signs password-reset tokens. Empty means "reuse
	// AccessSecret".
	ResetSecret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration

	// Issuer is embedded in and required of every token.
	Issuer string

	// CachePrefix namespaces the Redis keys.
	CachePrefix string

	// OpTimeout bounds each collaborator call (store, cache, mail) so a
	// hung backend surfaces as an error instead of a stalled request.
	OpTimeout time.Duration

	Password password.Config
}

// DefaultConfig returns production-shaped defaults. Secrets must still
// be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
		ResetTTL:    15 * time.Minute,
		Issuer:      "bozor",
		CachePrefix: "bozor",
		OpTimeout:   5 * time.Second,
		Password:    password.DefaultConfig(),
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if len(c.AccessSecret) < 32 {
		return errors.New("AccessSecret must be at least 32 bytes")
	}
	if len(c.RefreshSecret) < 32 {
		return errors.New("RefreshSecret must be at least 32 bytes")
	}
	if bytes.Equal(c.AccessSecret, c.RefreshSecret) {
		return errors.New("AccessSecret and RefreshSecret must differ")
	}
	if len(c.ResetSecret) > 0 {
		if len(c.ResetSecret) < 32 {
			return errors.New("ResetSecret must be at least 32 bytes")
		}
		if bytes.Equal(c.ResetSecret, c.RefreshSecret) {
			return errors.New("ResetSecret and RefreshSecret must differ")
		}
	}
	if c.AccessTTL <= 0 {
		return errors.New("AccessTTL must be > 0")
	}
	if c.RefreshTTL <= 0 {
		return errors.New("RefreshTTL must be > 0")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return errors.New("RefreshTTL must exceed AccessTTL")
	}
	if c.ResetTTL <= 0 {
		return errors.New("ResetTTL must be > 0")
	}
	if c.OpTimeout <= 0 {
		return errors.New("OpTimeout must be > 0")
	}
	return nil
}

func (c *Config) resetSecret() []byte {
	if len(c.ResetSecret) > 0 {
		return c.ResetSecret
	}
	return c.AccessSecret
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.AccessSecret = cloneBytes(cfg.AccessSecret)
	out.RefreshSecret = cloneBytes(cfg.RefreshSecret)
	out.ResetSecret = cloneBytes(cfg.ResetSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
