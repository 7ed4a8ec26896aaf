package ratelimiter

import (
	"context"
	"time"
)

// Store keeps bucket state. Take consumes n tokens only when the bucket
// holds at least n; a refused call leaves the bucket untouched.
type Store interface {
	Take(ctx context.Context, key string, n int, cfg Config, now time.Time) (remaining int, resetAt time.Time, ok bool, err error)
	Reset(ctx context.Context, key string) error
}
