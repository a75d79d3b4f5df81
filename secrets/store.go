package secrets

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound reports that no value is cached under the key.
	ErrNotFound = errors.New("secret not found")
	// ErrMismatch reports that the cached value differs from the one
	// presented to a compare operation.
	ErrMismatch = errors.New("secret mismatch")
	// ErrUnavailable wraps transport and server failures from Redis.
	ErrUnavailable = errors.New("secret cache unavailable")
)

// Store is a TTL key-value cache over a Redis client. All operations are
// safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore wraps a Redis client. Keys are namespaced under prefix
// ("bozor" when empty).
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "bozor"
	}
	return &Store{redis: client, prefix: prefix}
}

// RefreshKey returns the cache key holding userID's live refresh token.
func (s *Store) RefreshKey(userID string) string {
	return s.prefix + ":refresh_token:" + userID
}

// ResetKey returns the cache key holding userID's live reset token.
func (s *Store) ResetKey(userID string) string {
	return s.prefix + ":reset_token:" + userID
}

// Set writes value under key with the given TTL, overwriting any prior
// value. Overwrite is the revocation point for previously issued tokens.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the value cached under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

const casMaxRetries = 4

// CompareAndSwap replaces the value under key with next iff the cached
// value equals expected, resetting the TTL. Exactly one of any set of
// concurrent callers presenting the same expected value wins; the rest
// observe ErrMismatch or ErrNotFound.
func (s *Store) CompareAndSwap(ctx context.Context, key, expected, next string, ttl time.Duration) error {
	return s.guarded(ctx, key, expected, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		return err
	})
}

// CompareAndDelete removes key iff the cached value equals expected.
// This is the single-use gate for reset tokens.
func (s *Store) CompareAndDelete(ctx context.Context, key, expected string) error {
	return s.guarded(ctx, key, expected, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	})
}

// guarded runs commit under WATCH(key) after an equality check against
// expected, retrying on transaction conflicts.
func (s *Store) guarded(ctx context.Context, key, expected string, commit func(*redis.Tx) error) error {
	for i := 0; i < casMaxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, key).Result()
			if err != nil {
				return err
			}
			if subtle.ConstantTimeCompare([]byte(current), []byte(expected)) != 1 {
				return ErrMismatch
			}
			return commit(tx)
		}, key)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, redis.Nil):
			return ErrNotFound
		case errors.Is(err, ErrMismatch):
			return ErrMismatch
		default:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	// The key changed under us on every attempt; whoever changed it
	// invalidated the expected value.
	return ErrMismatch
}
