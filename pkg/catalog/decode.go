package catalog

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// requiredFields must be present in every administrator payload.
var requiredFields = []string{
	"limits.maxLinks",
	"limits.maxForms",
	"limits.maxWebhooks",
	"features.themeEditing",
	"features.analytics",
	"features.prioritySupport",
	"price.amount",
}

// DecodePlan coerces an untyped administrator payload onto base.
//
// Limits and price coerce to integers (JSON numbers or numeric strings) and
// feature flags coerce to booleans ("true", "false", 0, 1). Unknown keys,
// missing required fields and values that fail coercion reject the whole
// payload; base is never partially modified. A nil base means a new plan,
// which additionally requires id and name.
func DecodePlan(raw map[string]any, base *Plan) (Plan, error) {
	required := requiredFields
	var out Plan
	if base == nil {
		required = append([]string{"id", "name"}, requiredFields...)
		out = Plan{Price: Price{Currency: DefaultCurrency}}
	} else {
		out = base.Clone()
	}

	var missing []string
	for _, path := range required {
		if !present(raw, path) {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return Plan{}, fmt.Errorf("%w: missing required fields: %s", ErrInvalidPlan, strings.Join(missing, ", "))
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       rejectFractions,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return Plan{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	if base != nil && out.ID != base.ID {
		return Plan{}, fmt.Errorf("%w: id cannot change from %q to %q", ErrInvalidPlan, base.ID, out.ID)
	}
	if err := out.Validate(); err != nil {
		return Plan{}, err
	}
	return out, nil
}

// DecodePlans decodes a full catalog payload. Every entry is decoded as a
// new plan; one failure rejects the whole list.
func DecodePlans(raw []map[string]any) ([]Plan, error) {
	plans := make([]Plan, 0, len(raw))
	for i, entry := range raw {
		p, err := DecodePlan(entry, nil)
		if err != nil {
			return nil, fmt.Errorf("plans[%d]: %w", i, err)
		}
		plans = append(plans, p)
	}
	if err := ValidateAll(plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func present(raw map[string]any, path string) bool {
	head, rest, nested := strings.Cut(path, ".")
	v, ok := raw[head]
	if !ok || v == nil {
		return false
	}
	if !nested {
		s, isString := v.(string)
		return !isString || strings.TrimSpace(s) != ""
	}
	child, ok := v.(map[string]any)
	return ok && present(child, rest)
}

// rejectFractions stops weak decoding from truncating 5.5 into 5, and keeps
// arbitrary numbers from turning into booleans.
func rejectFractions(from, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int64:
		switch v := data.(type) {
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("expected an integer, got %v", v)
			}
		case bool:
			return nil, fmt.Errorf("expected a number, got %v", v)
		}
	case reflect.Bool:
		switch v := data.(type) {
		case float64:
			if v != 0 && v != 1 {
				return nil, fmt.Errorf("expected a boolean, got %v", v)
			}
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "false", "1", "0":
				return strings.ToLower(strings.TrimSpace(v)), nil
			default:
				return nil, fmt.Errorf("expected a boolean, got %q", v)
			}
		}
	}
	return data, nil
}
