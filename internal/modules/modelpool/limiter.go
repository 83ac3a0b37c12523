package modelpool

import (
	"context"
	"fmt"
	"time"

	redisc "github.com/openkb/review-core/internal/pkg/redis"
)

// CounterStore is the shared budget state behind model selection. Counters
// must be atomic across worker processes: two workers incrementing the same
// minute window can never both observe capacity the other already consumed.
type CounterStore interface {
	// IncrBy atomically adds n to key and returns the new value, setting ttl
	// on first write.
	IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error)
	// Get returns the current value of key, 0 if absent.
	Get(ctx context.Context, key string) (int64, error)
	// SetCooldown marks key for d; Exists reports whether it is still set.
	SetCooldown(ctx context.Context, key string, d time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

const (
	counterTTL = 2 * time.Minute
)

func rpmKey(modelID string, minute int64) string {
	return fmt.Sprintf("review:model:%s:rpm:%d", modelID, minute)
}

func tpmKey(modelID string, minute int64) string {
	return fmt.Sprintf("review:model:%s:tpm:%d", modelID, minute)
}

func cooldownKey(modelID string) string {
	return fmt.Sprintf("review:model:%s:cooldown", modelID)
}

// redisCounterStore implements CounterStore on Redis.
type redisCounterStore struct {
	rc *redisc.Client
}

func NewRedisCounterStore(rc *redisc.Client) CounterStore {
	return &redisCounterStore{rc: rc}
}

func (s *redisCounterStore) IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error) {
	v, err := s.rc.Raw().IncrBy(ctx, key, n).Result()
	if err != nil {
		return 0, err
	}
	if v == n {
		s.rc.Raw().PExpire(ctx, key, ttl)
	}
	return v, nil
}

func (s *redisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	v, err := s.rc.Raw().Get(ctx, key).Int64()
	if err != nil {
		// redis.Nil and transport errors both read as zero; selection treats
		// an unreadable counter as empty rather than blocking all review.
		return 0, nil
	}
	return v, nil
}

func (s *redisCounterStore) SetCooldown(ctx context.Context, key string, d time.Duration) error {
	return s.rc.Raw().Set(ctx, key, 1, d).Err()
}

func (s *redisCounterStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rc.Raw().Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
