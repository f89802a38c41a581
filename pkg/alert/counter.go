package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DayCounter hands out a limited number of permits per calendar day.
type DayCounter interface {
	// Acquire takes a permit for day and reports whether one was left.
	Acquire(ctx context.Context, day time.Time, limit int) (bool, error)
}

func dayKey(day time.Time) string {
	return day.Format("20060102")
}

// MemoryCounter keeps the count in process. The count resets whenever the
// observed date differs from the stored one.
type MemoryCounter struct {
	mu    sync.Mutex
	date  string
	count int
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{}
}

func (m *MemoryCounter) Acquire(_ context.Context, day time.Time, limit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d := dayKey(day); d != m.date {
		m.date = d
		m.count = 0
	}
	if m.count >= limit {
		return false, nil
	}
	m.count++
	return true, nil
}

// RedisCounter shares the daily count between processes.
type RedisCounter struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCounter stores counts under prefix+yyyyMMdd keys that expire after
// two days.
func NewRedisCounter(client redis.UniversalClient, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "logship:alerts:"
	}
	return &RedisCounter{client: client, prefix: prefix, ttl: 48 * time.Hour}
}

func (r *RedisCounter) Acquire(ctx context.Context, day time.Time, limit int) (bool, error) {
	key := r.prefix + dayKey(day)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("alert counter %s: %w", key, err)
	}
	return incr.Val() <= int64(limit), nil
}
