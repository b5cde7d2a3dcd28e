package ssn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestMemoryAttemptStore_CountsWithinWindow(t *testing.T) {
	store := NewMemoryAttemptStore()
	defer store.Close()

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		count, err := store.Increment(ctx, "user-1", time.Minute)
		if err != nil {
			t.Fatalf("Increment() error: %v", err)
		}
		if count != int64(i) {
			t.Errorf("attempt %d: expected count %d, got %d", i, i, count)
		}
	}

	// Separate users do not share counters.
	count, err := store.Increment(ctx, "user-2", time.Minute)
	if err != nil {
		t.Fatalf("Increment() error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected fresh counter for second user, got %d", count)
	}
}

func TestMemoryAttemptStore_WindowResets(t *testing.T) {
	store := NewMemoryAttemptStore()
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Increment(ctx, "user-1", 10*time.Millisecond); err != nil {
		t.Fatalf("Increment() error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	count, err := store.Increment(ctx, "user-1", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Increment() error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected counter reset after window, got %d", count)
	}
}

func TestMemoryAttemptStore_SweepRemovesExpired(t *testing.T) {
	store := NewMemoryAttemptStore()
	defer store.Close()

	ctx := context.Background()
	store.Increment(ctx, "stale", time.Minute)
	store.Increment(ctx, "fresh", time.Hour)

	store.sweep(time.Now().Add(30 * time.Minute))

	store.mu.Lock()
	_, staleKept := store.entries["stale"]
	_, freshKept := store.entries["fresh"]
	store.mu.Unlock()

	if staleKept {
		t.Error("expected stale entry to be swept")
	}
	if !freshKept {
		t.Error("expected unexpired entry to survive the sweep")
	}
}

func TestRateLimiter_DeniesEleventhAttempt(t *testing.T) {
	store := NewMemoryAttemptStore()
	defer store.Close()
	limiter := NewRateLimiter(store, 10, time.Minute, zerolog.Nop())

	ctx := context.Background()
	for i := 1; i <= 10; i++ {
		if !limiter.Allow(ctx, "user-1") {
			t.Fatalf("attempt %d should be allowed", i)
		}
	}
	if limiter.Allow(ctx, "user-1") {
		t.Error("11th attempt within the window should be denied")
	}
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

func TestRateLimiter_FailsOpenOnStoreError(t *testing.T) {
	limiter := NewRateLimiter(failingStore{}, 10, time.Minute, zerolog.Nop())
	if !limiter.Allow(context.Background(), "user-1") {
		t.Error("limiter should fail open when the attempt store is unavailable")
	}
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(failingStore{}, 0, 0, zerolog.Nop())
	if limiter.max != DefaultMaxAttempts {
		t.Errorf("expected default max %d, got %d", DefaultMaxAttempts, limiter.max)
	}
	if limiter.window != DefaultWindow {
		t.Errorf("expected default window %v, got %v", DefaultWindow, limiter.window)
	}
}
