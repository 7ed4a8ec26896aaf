package catalog

// DefaultCurrency is used for plans declared without one.
const DefaultCurrency = "BRL"

// DefaultPlans is the built-in catalog used when no plans file is configured.
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:     Free,
			Name:   "Free",
			Rank:   0,
			Limits: Limits{MaxLinks: 5, MaxForms: 1, MaxWebhooks: 0},
			Price:  Price{Amount: 0, Currency: DefaultCurrency},
		},
		{
			ID:       Pro,
			Name:     "Pro",
			Rank:     1,
			Limits:   Limits{MaxLinks: 50, MaxForms: 5, MaxWebhooks: 3},
			Features: FeatureFlags{ThemeEditing: true, Analytics: true},
			Price:    Price{Amount: 1990, Currency: DefaultCurrency},
		},
		{
			ID:       Business,
			Name:     "Business",
			Rank:     2,
			Limits:   Limits{MaxLinks: Unlimited, MaxForms: Unlimited, MaxWebhooks: Unlimited},
			Features: FeatureFlags{ThemeEditing: true, Analytics: true, PrioritySupport: true},
			Price:    Price{Amount: 4990, Currency: DefaultCurrency},
		},
	}
}
