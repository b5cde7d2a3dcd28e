package ssn

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAttemptStore shares the decrypt attempt counters across instances.
// Each user key is an INCR counter with the window applied as a TTL on
// first increment.
type RedisAttemptStore struct {
	client *redis.Client
	prefix string
}

// NewRedisAttemptStore creates a store on an existing Redis client.
func NewRedisAttemptStore(client *redis.Client) *RedisAttemptStore {
	return &RedisAttemptStore{client: client, prefix: "carehub:ssn:attempts:"}
}

func (s *RedisAttemptStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := s.prefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", redisKey, err)
	}

	// First attempt in a window starts the clock. Later increments must not
	// extend it or the window would slide forever under sustained traffic.
	if count == 1 {
		if err := s.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return count, fmt.Errorf("pexpire %s: %w", redisKey, err)
		}
	}

	return count, nil
}
