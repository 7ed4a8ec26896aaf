package catalog

import (
	"context"
	"sync"
)

// Memory keeps the catalog in process memory. Replacements are atomic with
// respect to concurrent readers.
type Memory struct {
	mu    sync.RWMutex
	plans []Plan
	opts  options
}

// NewMemory validates plans and returns a store seeded with them.
func NewMemory(plans []Plan, opts ...Option) (*Memory, error) {
	if err := ValidateAll(plans); err != nil {
		return nil, err
	}
	seed := cloneAll(plans)
	SortByRank(seed)
	return &Memory{plans: seed, opts: buildOptions(opts)}, nil
}

// MustNewMemory is NewMemory that panics on an invalid catalog.
func MustNewMemory(plans []Plan, opts ...Option) *Memory {
	m, err := NewMemory(plans, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Memory) Get(_ context.Context, id string) (Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return find(m.plans, id)
}

func (m *Memory) All(context.Context) ([]Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAll(m.plans), nil
}

func (m *Memory) Replace(ctx context.Context, plans []Plan) error {
	if err := ValidateAll(plans); err != nil {
		return err
	}
	next := cloneAll(plans)
	SortByRank(next)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.opts.checkRemovals(ctx, m.plans, next); err != nil {
		return err
	}
	m.plans = next
	return nil
}

func (m *Memory) Update(_ context.Context, id string, raw map[string]any) (Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, updated, err := applyUpdate(m.plans, id, raw)
	if err != nil {
		return Plan{}, err
	}
	m.plans = next
	return updated.Clone(), nil
}
