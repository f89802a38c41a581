package alert

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryCounter(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if ok, _ := c.Acquire(ctx, day, 3); !ok {
			t.Fatalf("permit %d denied", i+1)
		}
	}
	if ok, _ := c.Acquire(ctx, day.Add(time.Hour), 3); ok {
		t.Fatal("fourth permit on the same day granted")
	}
	if ok, _ := c.Acquire(ctx, day.AddDate(0, 0, 1), 3); !ok {
		t.Fatal("permit denied on a new day")
	}
}

func TestRedisCounter(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	ctx := context.Background()
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// Two processes share one budget.
	a := NewRedisCounter(client, "test:")
	b := NewRedisCounter(client, "test:")
	granted := 0
	for i := 0; i < 4; i++ {
		c := a
		if i%2 == 1 {
			c = b
		}
		ok, err := c.Acquire(ctx, day, 3)
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if ok {
			granted++
		}
	}
	if granted != 3 {
		t.Fatalf("granted %d permits, want 3", granted)
	}

	if ttl := s.TTL("test:20240301"); ttl <= 0 {
		t.Errorf("counter key has no expiry (ttl=%s)", ttl)
	}
	if ok, _ := a.Acquire(ctx, day.AddDate(0, 0, 1), 3); !ok {
		t.Error("permit denied on a new day")
	}
}

func TestRedisCounter_Unavailable(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	if _, err := NewRedisCounter(client, "").Acquire(context.Background(), time.Now(), 3); err == nil {
		t.Fatal("expected an error when redis is down")
	}
}
