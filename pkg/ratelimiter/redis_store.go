package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript refills and consumes atomically. State is a hash of tokens
// and the last refill mark in milliseconds. Returns {remaining, lastRefill, ok}.
var takeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate     = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now      = tonumber(ARGV[4])
local n        = tonumber(ARGV[5])
local ttl      = tonumber(ARGV[6])

local state  = redis.call('HMGET', KEYS[1], 'tokens', 'last')
local tokens = tonumber(state[1])
local last   = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  last = now
end

if now > last then
  local intervals = math.floor((now - last) / interval)
  if intervals > 0 then
    intervals = math.min(intervals, math.floor(capacity / rate) + 1)
    tokens = math.min(tokens + intervals * rate, capacity)
    if tokens == capacity then
      last = now
    else
      last = last + intervals * interval
    end
  end
end

local ok = 0
if tokens >= n then
  tokens = tokens - n
  ok = 1
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last', last)
redis.call('PEXPIRE', KEYS[1], ttl)
return {tokens, last, ok}
`)

// RedisStore shares buckets between instances.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Take(ctx context.Context, key string, n int, cfg Config, now time.Time) (int, time.Time, bool, error) {
	interval := cfg.RefillInterval.Milliseconds()
	if interval <= 0 {
		interval = 1
	}
	// Keep state until a full bucket would have refilled, plus one interval.
	full := int64(cfg.Capacity/cfg.RefillRate+1) * interval
	ttl := full + interval

	vals, err := takeScript.Run(ctx, s.client, []string{key},
		cfg.Capacity, cfg.RefillRate, interval, now.UnixMilli(), n, ttl,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, false, errors.Join(ErrStoreUnavailable, err)
	}
	if len(vals) != 3 {
		return 0, time.Time{}, false, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, vals)
	}

	resetAt := time.UnixMilli(vals[1] + interval)
	return int(vals[0]), resetAt, vals[2] == 1, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
