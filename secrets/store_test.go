package secrets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb, "test"), mr
}

func TestSetGetDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := store.RefreshKey("user-1")

	if err := store.Set(ctx, key, "tok-1", time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != "tok-1" {
		t.Fatalf("expected tok-1, got %q", got)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSetOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := store.RefreshKey("user-1")

	if err := store.Set(ctx, key, "old", time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := store.Set(ctx, key, "new", time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != "new" {
		t.Fatalf("expected overwrite to win, got %q", got)
	}
}

func TestTTLExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	key := store.ResetKey("user-1")

	if err := store.Set(ctx, key, "tok", 900*time.Second); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if ttl := mr.TTL(key); ttl != 900*time.Second {
		t.Fatalf("expected 900s TTL, got %v", ttl)
	}

	mr.FastForward(901 * time.Second)

	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestCompareAndSwap(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := store.RefreshKey("user-1")

	if err := store.Set(ctx, key, "old", time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	if err := store.CompareAndSwap(ctx, key, "old", "new", time.Minute); err != nil {
		t.Fatalf("CompareAndSwap error: %v", err)
	}
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != "new" {
		t.Fatalf("expected swapped value, got %q", got)
	}

	if err := store.CompareAndSwap(ctx, key, "old", "newer", time.Minute); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch for stale expected value, got %v", err)
	}
	if err := store.CompareAndSwap(ctx, store.RefreshKey("nobody"), "x", "y", time.Minute); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent key, got %v", err)
	}
}

func TestCompareAndDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := store.ResetKey("user-1")

	if err := store.Set(ctx, key, "tok", time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	if err := store.CompareAndDelete(ctx, key, "other"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if err := store.CompareAndDelete(ctx, key, "tok"); err != nil {
		t.Fatalf("CompareAndDelete error: %v", err)
	}
	if err := store.CompareAndDelete(ctx, key, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second consume must report ErrNotFound, got %v", err)
	}
}

func TestCompareAndSwapSingleWinner(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := store.RefreshKey("user-1")

	if err := store.Set(ctx, key, "shared", time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		next := string(rune('a' + i))
		go func() {
			defer wg.Done()
			results <- store.CompareAndSwap(ctx, key, "shared", next, time.Minute)
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrMismatch) && !errors.Is(err, ErrNotFound) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}
}

func TestKeyLayout(t *testing.T) {
	store, _ := newTestStore(t)

	if got := store.RefreshKey("u1"); got != "test:refresh_token:u1" {
		t.Fatalf("unexpected refresh key %q", got)
	}
	if got := store.ResetKey("u1"); got != "test:reset_token:u1" {
		t.Fatalf("unexpected reset key %q", got)
	}
}
