package ratelimiter

import "time"

// Result is the outcome of one Allow call.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	allowed   bool
}

func (r Result) Allowed() bool {
	return r.allowed
}

// RetryAfter is how long a denied caller should wait. It is zero for
// allowed requests.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.allowed {
		return 0
	}
	return max(r.ResetAt.Sub(now), 0)
}

// Config describes one bucket: Capacity tokens, refilled by RefillRate
// every RefillInterval.
type Config struct {
	Capacity       int           `env:"CHECKOUT_RATE_CAPACITY" envDefault:"5"`
	RefillRate     int           `env:"CHECKOUT_RATE_REFILL" envDefault:"1"`
	RefillInterval time.Duration `env:"CHECKOUT_RATE_INTERVAL" envDefault:"1m"`
	KeyPrefix      string        `env:"CHECKOUT_RATE_KEY_PREFIX" envDefault:"ratelimit:checkout:"`
}
