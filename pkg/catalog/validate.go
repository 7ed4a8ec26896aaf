package catalog

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	planIDPattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Validate checks a single plan in isolation.
func (p Plan) Validate() error {
	var errs []error
	if !planIDPattern.MatchString(p.ID) {
		errs = append(errs, fmt.Errorf("id %q must match %s", p.ID, planIDPattern))
	}
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if p.Rank < 0 {
		errs = append(errs, errors.New("rank must not be negative"))
	}
	for _, r := range Resources {
		if limit, _ := p.Limit(r); limit < Unlimited {
			errs = append(errs, fmt.Errorf("%s limit must be -1 (unlimited) or >= 0, got %d", r, limit))
		}
	}
	if p.Price.Amount < 0 {
		errs = append(errs, errors.New("price must not be negative"))
	}
	if !currencyPattern.MatchString(p.Price.Currency) {
		errs = append(errs, fmt.Errorf("currency %q must be an ISO 4217 code", p.Price.Currency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidPlan, p.ID, errors.Join(errs...))
	}
	return nil
}

// ValidateAll checks a complete catalog: every plan valid, ids and ranks
// unique, and the free tier present.
func ValidateAll(plans []Plan) error {
	if len(plans) == 0 {
		return ErrEmptyCatalog
	}

	ids := make(map[string]struct{}, len(plans))
	ranks := make(map[int]string, len(plans))
	hasFree := false
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("%w: duplicate plan id %q", ErrInvalidPlan, p.ID)
		}
		if other, dup := ranks[p.Rank]; dup {
			return fmt.Errorf("%w: plans %q and %q share rank %d", ErrInvalidPlan, other, p.ID, p.Rank)
		}
		ids[p.ID] = struct{}{}
		ranks[p.Rank] = p.ID
		if p.ID == Free {
			hasFree = true
		}
	}
	if !hasFree {
		return ErrMissingFree
	}
	return nil
}
