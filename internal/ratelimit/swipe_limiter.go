// Package ratelimit bounds how fast a single user can enqueue applications.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SwipeLimiter is a per-user token bucket kept in Redis, shared across all API
// instances. Each enqueue consumes one token; tokens refill continuously.
type SwipeLimiter struct {
	client   *redis.Client
	capacity int
	refill   float64 // tokens per second
	ttl      time.Duration
}

// NewSwipeLimiter builds a limiter. Bucket state expires after ttl of
// inactivity so idle users cost nothing.
func NewSwipeLimiter(client *redis.Client, capacity int, refillPerSecond float64, ttl time.Duration) *SwipeLimiter {
	return &SwipeLimiter{
		client:   client,
		capacity: capacity,
		refill:   refillPerSecond,
		ttl:      ttl,
	}
}

// Decision reports the outcome of one token request.
type Decision struct {
	Allowed    bool
	Remaining  float64
	RetryAfter time.Duration // zero when Allowed
}

// Allow consumes one token for the user if available. The refill-then-take
// logic runs as a single Lua script, so concurrent enqueues from several API
// instances never double-spend a token.
func (l *SwipeLimiter) Allow(ctx context.Context, userID string) (Decision, error) {
	key := "swipe:rate:" + userID
	now := time.Now().UnixMilli()
	res, err := swipeScript.Run(ctx, l.client, []string{key}, l.capacity, l.refill, now, l.ttl.Milliseconds()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) < 2 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %T", res)
	}

	d := Decision{Allowed: arr[0].(int64) == 1}
	switch v := arr[1].(type) {
	case int64:
		d.Remaining = float64(v)
	case float64:
		d.Remaining = v
	case string:
		fmt.Sscanf(v, "%f", &d.Remaining)
	}
	if !d.Allowed && l.refill > 0 {
		deficit := 1 - d.Remaining
		if deficit > 0 {
			d.RetryAfter = time.Duration(deficit / l.refill * float64(time.Second))
		}
	}
	return d, nil
}

var swipeScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2]) -- tokens per second
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local data = redis.call('HMGET', key, 'tokens', 'last_ms')
local tokens = tonumber(data[1])
local last = tonumber(data[2])
if tokens == nil then tokens = capacity end
if last == nil then last = now end

local delta = math.max(0, now - last)
tokens = math.min(capacity, tokens + delta / 1000 * refill)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call('HMSET', key, 'tokens', tostring(tokens), 'last_ms', now)
if ttl > 0 then redis.call('PEXPIRE', key, ttl) end
return {allowed, tostring(tokens)}
`)
