package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSwipeLimiter(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewSwipeLimiter(client, 2, 1, time.Minute)

	d, err := limiter.Allow(ctx, "user-1")
	if err != nil || !d.Allowed {
		t.Fatalf("expected first swipe allowed, got %+v err=%v", d, err)
	}
	d, _ = limiter.Allow(ctx, "user-1")
	if !d.Allowed {
		t.Fatalf("expected second swipe allowed")
	}
	d, _ = limiter.Allow(ctx, "user-1")
	if d.Allowed {
		t.Fatalf("expected third swipe rejected")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("expected a retry-after hint, got %v", d.RetryAfter)
	}

	// Buckets are per user.
	d, err = limiter.Allow(ctx, "user-2")
	if err != nil || !d.Allowed {
		t.Fatalf("expected fresh user allowed, got %+v err=%v", d, err)
	}

	// Refill cannot be tested with miniredis.FastForward() because the script
	// takes its clock from Go, not Redis.
}
