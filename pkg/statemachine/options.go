package statemachine

// Option configures a Machine during construction.
type Option[S ~string] func(*Machine[S]) error

// TransitionOption attaches guards or actions to a transition.
type TransitionOption[S ~string] func(*transition[S])

// WithTransition declares from->to for every given target.
func WithTransition[S ~string](from S, to []S, opts ...TransitionOption[S]) Option[S] {
	return func(m *Machine[S]) error {
		if len(to) == 0 {
			return ErrInvalidTransition
		}
		for _, target := range to {
			var t transition[S]
			for _, opt := range opts {
				opt(&t)
			}
			if err := m.add(from, target, t); err != nil {
				return err
			}
		}
		return nil
	}
}

func WithGuard[S ~string](guard Guard[S]) TransitionOption[S] {
	return func(t *transition[S]) {
		if guard != nil {
			t.guards = append(t.guards, guard)
		}
	}
}

func WithAction[S ~string](action Action[S]) TransitionOption[S] {
	return func(t *transition[S]) {
		if action != nil {
			t.actions = append(t.actions, action)
		}
	}
}
