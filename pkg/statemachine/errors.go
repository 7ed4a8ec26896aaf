package statemachine

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid transition definition")

// NoTransitionError means the table has no edge between the two states.
type NoTransitionError struct {
	From string
	To   string
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("no transition from %q to %q", e.From, e.To)
}

// TransitionRejectedError means the edge exists but a guard refused it.
type TransitionRejectedError struct {
	From string
	To   string
}

func (e *TransitionRejectedError) Error() string {
	return fmt.Sprintf("transition from %q to %q rejected by guard", e.From, e.To)
}

func IsNoTransition(err error) bool {
	var e *NoTransitionError
	return errors.As(err, &e)
}

func IsRejected(err error) bool {
	var e *TransitionRejectedError
	return errors.As(err, &e)
}
