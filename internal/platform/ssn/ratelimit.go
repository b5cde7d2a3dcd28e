package ssn

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxAttempts and DefaultWindow bound decrypt attempts per user.
	DefaultMaxAttempts = 10
	DefaultWindow      = 60 * time.Second

	sweepInterval = 5 * time.Minute
)

// AttemptStore counts decrypt attempts per user within a window. The counter
// is approximate under concurrency; this is abuse mitigation, not a ledger.
type AttemptStore interface {
	// Increment records one attempt for the key and returns the attempt
	// count within the current window, including this one.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter enforces a per-user cap on decrypt attempts. It sits in front
// of the permission and crypto layers: a rate-limited request is denied
// before either runs, and is not treated as a security event.
type RateLimiter struct {
	store  AttemptStore
	max    int
	window time.Duration
	logger zerolog.Logger
}

// NewRateLimiter creates a limiter allowing max attempts per window.
func NewRateLimiter(store AttemptStore, max int, window time.Duration, logger zerolog.Logger) *RateLimiter {
	if max < 1 {
		max = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RateLimiter{store: store, max: max, window: window, logger: logger}
}

// Allow records an attempt for the user and reports whether it is within
// the cap. Store failures fail open with a warning: losing abuse mitigation
// briefly is preferable to blocking all decrypts on a store outage.
func (l *RateLimiter) Allow(ctx context.Context, userID string) bool {
	count, err := l.store.Increment(ctx, userID, l.window)
	if err != nil {
		l.logger.Warn().Err(err).Str("user_id", userID).Msg("ssn rate limiter: attempt store unavailable")
		return true
	}
	return count <= int64(l.max)
}

type attemptWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryAttemptStore is the default single-instance store: a mutex-guarded
// map of sliding counters, swept periodically to bound memory. State does
// not replicate across instances; use the Redis store for multi-instance
// deployments.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	entries map[string]*attemptWindow
	done    chan struct{}
	once    sync.Once
}

// NewMemoryAttemptStore creates the store and starts its background sweep.
// Call Close to stop the sweeper.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	s := &MemoryAttemptStore{
		entries: make(map[string]*attemptWindow),
		done:    make(chan struct{}),
	}
	go s.sweepLoop(sweepInterval)
	return s
}

func (s *MemoryAttemptStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = &attemptWindow{resetAt: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++
	return entry.count, nil
}

// Close stops the background sweep goroutine.
func (s *MemoryAttemptStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryAttemptStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *MemoryAttemptStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if now.After(entry.resetAt) {
			delete(s.entries, key)
		}
	}
}
