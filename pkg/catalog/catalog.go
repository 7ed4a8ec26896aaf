package catalog

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Catalog is the read/write contract shared by every plan store.
type Catalog interface {
	// Get returns the plan or ErrPlanNotFound.
	Get(ctx context.Context, id string) (Plan, error)
	// All returns every plan ordered by rank.
	All(ctx context.Context) ([]Plan, error)
	// Replace atomically swaps the whole catalog after validating it.
	Replace(ctx context.Context, plans []Plan) error
	// Update coerces raw onto the plan with the given id (or creates it)
	// and commits the new catalog only if the result is fully valid.
	Update(ctx context.Context, id string, raw map[string]any) (Plan, error)
}

// InUseFunc reports whether any live subscription references planID.
type InUseFunc func(ctx context.Context, planID string) (bool, error)

// Option configures a catalog store.
type Option func(*options)

type options struct {
	inUse InUseFunc
}

// WithInUseCheck refuses replacements that drop a plan still referenced by
// a live subscription.
func WithInUseCheck(fn InUseFunc) Option {
	return func(o *options) { o.inUse = fn }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// checkRemovals returns ErrPlanInUse if next drops a plan that is in use.
func (o options) checkRemovals(ctx context.Context, prev, next []Plan) error {
	if o.inUse == nil {
		return nil
	}
	for _, p := range prev {
		if slices.ContainsFunc(next, func(n Plan) bool { return n.ID == p.ID }) {
			continue
		}
		used, err := o.inUse(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("check plan %q usage: %w", p.ID, err)
		}
		if used {
			return fmt.Errorf("%w: %q", ErrPlanInUse, p.ID)
		}
	}
	return nil
}

// applyUpdate returns a copy of plans with raw decoded onto plan id.
func applyUpdate(plans []Plan, id string, raw map[string]any) ([]Plan, Plan, error) {
	next := cloneAll(plans)
	idx := slices.IndexFunc(next, func(p Plan) bool { return p.ID == id })

	var (
		updated Plan
		err     error
	)
	if idx >= 0 {
		updated, err = DecodePlan(raw, &next[idx])
	} else {
		if _, ok := raw["id"]; !ok {
			raw = withID(raw, id)
		}
		updated, err = DecodePlan(raw, nil)
		if err == nil && updated.ID != id {
			err = fmt.Errorf("%w: payload id %q does not match %q", ErrInvalidPlan, updated.ID, id)
		}
	}
	if err != nil {
		return nil, Plan{}, err
	}

	if idx >= 0 {
		next[idx] = updated
	} else {
		next = append(next, updated)
	}
	if err := ValidateAll(next); err != nil {
		return nil, Plan{}, err
	}
	SortByRank(next)
	return next, updated, nil
}

func withID(raw map[string]any, id string) map[string]any {
	out := maps.Clone(raw)
	out["id"] = id
	return out
}

func cloneAll(plans []Plan) []Plan {
	out := make([]Plan, len(plans))
	for i, p := range plans {
		out[i] = p.Clone()
	}
	return out
}

func find(plans []Plan, id string) (Plan, error) {
	for _, p := range plans {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return Plan{}, fmt.Errorf("%w: %q", ErrPlanNotFound, id)
}
