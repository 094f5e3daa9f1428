package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// takeScript refills the bucket from the elapsed server time, then takes one
// token if available. It returns {allowed, tokens_left}.
var takeScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl_ms = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = (clock[1] * 1000) + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local last = tonumber(state[2])

if tokens == nil then
  tokens = burst
else
  local elapsed = math.max(0, now - last)
  tokens = math.min(burst, tokens + (elapsed / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl_ms)

return {allowed, tostring(tokens)}
`)

var errBadBucketReply = errors.New("rate_limit_bad_reply")

// Decision is the outcome of one bucket take.
type Decision struct {
	Allowed    bool
	Remaining  float64
	RetryAfter time.Duration
}

type bucket struct {
	client *redis.Client
	rate   float64
	burst  int
	ttl    time.Duration
}

func newBucket(client *redis.Client, rate float64, burst int) *bucket {
	// An idle bucket refills completely after burst/rate seconds; keep it twice that.
	ttl := time.Duration(math.Max(1, math.Ceil(2*float64(burst)/rate))) * time.Second
	return &bucket{client: client, rate: rate, burst: burst, ttl: ttl}
}

func (b *bucket) take(ctx context.Context, key string) (Decision, error) {
	reply, err := takeScript.Run(ctx, b.client, []string{key}, b.rate, b.burst, b.ttl.Milliseconds()).Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(reply) != 2 {
		return Decision{}, fmt.Errorf("%w: %d values", errBadBucketReply, len(reply))
	}
	allowed, ok := reply[0].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("%w: allowed=%v", errBadBucketReply, reply[0])
	}
	left, ok := reply[1].(string)
	if !ok {
		return Decision{}, fmt.Errorf("%w: tokens=%v", errBadBucketReply, reply[1])
	}
	remaining, err := strconv.ParseFloat(left, 64)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %w", errBadBucketReply, err)
	}

	d := Decision{Allowed: allowed == 1, Remaining: remaining}
	if !d.Allowed {
		d.RetryAfter = time.Duration((1 - remaining) / b.rate * float64(time.Second))
	}
	return d, nil
}
