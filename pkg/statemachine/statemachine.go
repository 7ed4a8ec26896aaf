// Package statemachine validates and applies status transitions for records
// whose current state is persisted elsewhere. A Machine holds only the
// transition table; callers pass the stored state in and persist the result.
package statemachine

import (
	"context"
	"fmt"
	"slices"
)

// Guard decides at runtime whether a transition may proceed.
type Guard[S ~string] func(ctx context.Context, from, to S, data any) bool

// Action runs side effects for a transition. A non-nil error aborts it.
type Action[S ~string] func(ctx context.Context, from, to S, data any) error

type transition[S ~string] struct {
	guards  []Guard[S]
	actions []Action[S]
}

// Machine is an immutable transition table, safe for concurrent use once built.
type Machine[S ~string] struct {
	edges map[S]map[S]transition[S]
	order map[S][]S
}

// New builds a Machine from the given options.
func New[S ~string](opts ...Option[S]) (*Machine[S], error) {
	m := &Machine[S]{
		edges: make(map[S]map[S]transition[S]),
		order: make(map[S][]S),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is New that panics on a malformed table.
func MustNew[S ~string](opts ...Option[S]) *Machine[S] {
	m, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return m
}

func (m *Machine[S]) add(from, to S, t transition[S]) error {
	if from == "" || to == "" {
		return ErrInvalidTransition
	}
	if from == to {
		return fmt.Errorf("%w: self transition on %q", ErrInvalidTransition, from)
	}
	if _, ok := m.edges[from]; !ok {
		m.edges[from] = make(map[S]transition[S])
	}
	if _, dup := m.edges[from][to]; dup {
		return fmt.Errorf("%w: %s->%s declared twice", ErrInvalidTransition, from, to)
	}
	m.edges[from][to] = t
	m.order[from] = append(m.order[from], to)
	return nil
}

// Can reports whether from->to is declared and all its guards pass.
func (m *Machine[S]) Can(ctx context.Context, from, to S, data any) bool {
	t, ok := m.edges[from][to]
	if !ok {
		return false
	}
	return passes(ctx, t, from, to, data)
}

// Fire validates from->to and runs its actions in order. It never mutates
// anything itself; the caller persists `to` once Fire returns nil.
func (m *Machine[S]) Fire(ctx context.Context, from, to S, data any) error {
	t, ok := m.edges[from][to]
	if !ok {
		return &NoTransitionError{From: string(from), To: string(to)}
	}
	if !passes(ctx, t, from, to, data) {
		return &TransitionRejectedError{From: string(from), To: string(to)}
	}
	for _, action := range t.actions {
		if err := action(ctx, from, to, data); err != nil {
			return fmt.Errorf("transition %s->%s: %w", from, to, err)
		}
	}
	return nil
}

// Targets lists the states reachable from `from` in declaration order.
func (m *Machine[S]) Targets(from S) []S {
	return slices.Clone(m.order[from])
}

// IsTerminal reports whether no transition leaves s.
func (m *Machine[S]) IsTerminal(s S) bool {
	return len(m.edges[s]) == 0
}

// ValidPath reports whether consecutive states of path are all declared
// transitions. Guards are not evaluated.
func (m *Machine[S]) ValidPath(path ...S) bool {
	for i := 1; i < len(path); i++ {
		if _, ok := m.edges[path[i-1]][path[i]]; !ok {
			return false
		}
	}
	return true
}

func passes[S ~string](ctx context.Context, t transition[S], from, to S, data any) bool {
	for _, g := range t.guards {
		if !g(ctx, from, to, data) {
			return false
		}
	}
	return true
}
