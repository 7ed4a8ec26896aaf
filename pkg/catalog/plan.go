package catalog

import (
	"maps"
	"slices"
)

// Well-known plan identifiers.
const (
	Free     = "free"
	Pro      = "pro"
	Business = "business"
)

// Unlimited marks a resource limit with no ceiling.
const Unlimited int64 = -1

// Resource is a countable, plan-limited resource type.
type Resource string

const (
	ResourceLinks    Resource = "links"
	ResourceForms    Resource = "forms"
	ResourceWebhooks Resource = "webhooks"
)

// Resources lists every limited resource in display order.
var Resources = []Resource{ResourceLinks, ResourceForms, ResourceWebhooks}

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	return slices.Contains(Resources, r)
}

// Feature is a boolean plan capability.
type Feature string

const (
	FeatureThemeEditing    Feature = "themeEditing"
	FeatureAnalytics       Feature = "analytics"
	FeaturePrioritySupport Feature = "prioritySupport"
)

var Features = []Feature{FeatureThemeEditing, FeatureAnalytics, FeaturePrioritySupport}

func (f Feature) Valid() bool {
	return slices.Contains(Features, f)
}

type Limits struct {
	MaxLinks    int64 `json:"maxLinks" yaml:"maxLinks" mapstructure:"maxLinks"`
	MaxForms    int64 `json:"maxForms" yaml:"maxForms" mapstructure:"maxForms"`
	MaxWebhooks int64 `json:"maxWebhooks" yaml:"maxWebhooks" mapstructure:"maxWebhooks"`
}

type FeatureFlags struct {
	ThemeEditing    bool `json:"themeEditing" yaml:"themeEditing" mapstructure:"themeEditing"`
	Analytics       bool `json:"analytics" yaml:"analytics" mapstructure:"analytics"`
	PrioritySupport bool `json:"prioritySupport" yaml:"prioritySupport" mapstructure:"prioritySupport"`
}

// Price is a monthly price in minor units (cents).
type Price struct {
	Amount   int64  `json:"amount" yaml:"amount" mapstructure:"amount"`
	Currency string `json:"currency" yaml:"currency" mapstructure:"currency"`
}

// Plan is one tier of the catalog.
type Plan struct {
	ID       string       `json:"id" yaml:"id" mapstructure:"id"`
	Name     string       `json:"name" yaml:"name" mapstructure:"name"`
	Rank     int          `json:"rank" yaml:"rank" mapstructure:"rank"`
	Limits   Limits       `json:"limits" yaml:"limits" mapstructure:"limits"`
	Features FeatureFlags `json:"features" yaml:"features" mapstructure:"features"`
	Price    Price        `json:"price" yaml:"price" mapstructure:"price"`

	// ProviderPriceIDs maps a gateway name to its catalog price id, for
	// gateways that charge against their own product catalog.
	ProviderPriceIDs map[string]string `json:"providerPriceIds,omitempty" yaml:"providerPriceIds,omitempty" mapstructure:"providerPriceIds"`
}

// Limit returns the configured ceiling for r. Unknown resources report
// (0, false) and must be treated as denied.
func (p Plan) Limit(r Resource) (int64, bool) {
	switch r {
	case ResourceLinks:
		return p.Limits.MaxLinks, true
	case ResourceForms:
		return p.Limits.MaxForms, true
	case ResourceWebhooks:
		return p.Limits.MaxWebhooks, true
	}
	return 0, false
}

// HasFeature reports whether the plan enables f. Unknown features are off.
func (p Plan) HasFeature(f Feature) bool {
	switch f {
	case FeatureThemeEditing:
		return p.Features.ThemeEditing
	case FeatureAnalytics:
		return p.Features.Analytics
	case FeaturePrioritySupport:
		return p.Features.PrioritySupport
	}
	return false
}

// Purchasable reports whether the plan can be bought through checkout.
func (p Plan) Purchasable() bool {
	return p.Price.Amount > 0
}

// PriceID returns the provider-side price id for gateway, if any.
func (p Plan) PriceID(gateway string) string {
	return p.ProviderPriceIDs[gateway]
}

// Clone returns a deep copy.
func (p Plan) Clone() Plan {
	p.ProviderPriceIDs = maps.Clone(p.ProviderPriceIDs)
	return p
}

// Allows reports whether a user currently holding `current` units of r
// may create one more.
func (p Plan) Allows(r Resource, current int64) bool {
	limit, ok := p.Limit(r)
	if !ok {
		return false
	}
	return limit == Unlimited || current < limit
}
