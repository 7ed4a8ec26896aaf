package limits

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/pkg/catalog"
)

// CounterFunc returns the user's current number of live records of one
// resource. It must read the source of truth on every call.
type CounterFunc func(ctx context.Context, userID uuid.UUID) (int64, error)

// CounterRegistry maps a resource to its CounterFunc.
// Not thread-safe: register all counters at startup only.
type CounterRegistry map[catalog.Resource]CounterFunc

func NewRegistry() CounterRegistry {
	return make(CounterRegistry)
}

// Register sets or replaces the counter for res. Panics if fn is nil.
func (r CounterRegistry) Register(res catalog.Resource, fn CounterFunc) CounterRegistry {
	if fn == nil {
		panic(fmt.Sprintf("limits: CounterFunc for resource %q cannot be nil", res))
	}
	r[res] = fn
	return r
}

// Count runs the registered counter for res.
func (r CounterRegistry) Count(ctx context.Context, userID uuid.UUID, res catalog.Resource) (int64, error) {
	fn, ok := r[res]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoCounterRegistered, res)
	}
	n, err := fn(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrFailedToCountResourceUsage, res, err)
	}
	return n, nil
}
