package catalog_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/biolink/pkg/catalog"
)

func fullPayload() map[string]any {
	return map[string]any{
		"limits":   map[string]any{"maxLinks": "80", "maxForms": 10.0, "maxWebhooks": 5.0},
		"features": map[string]any{"themeEditing": "true", "analytics": 1.0, "prioritySupport": false},
		"price":    map[string]any{"amount": 2990.0},
	}
}

func TestPlanLimitsAndFeatures(t *testing.T) {
	t.Parallel()

	plans := catalog.DefaultPlans()
	free, pro, business := plans[0], plans[1], plans[2]

	limit, ok := free.Limit(catalog.ResourceLinks)
	require.True(t, ok)
	assert.EqualValues(t, 5, limit)

	_, ok = free.Limit(catalog.Resource("images"))
	assert.False(t, ok)

	assert.False(t, free.Allows(catalog.ResourceLinks, 5))
	assert.True(t, free.Allows(catalog.ResourceLinks, 4))
	assert.True(t, business.Allows(catalog.ResourceLinks, 10_000))
	assert.False(t, business.Allows(catalog.Resource("images"), 0))

	assert.True(t, pro.HasFeature(catalog.FeatureAnalytics))
	assert.False(t, pro.HasFeature(catalog.FeaturePrioritySupport))
	assert.False(t, pro.HasFeature(catalog.Feature("sso")))

	assert.False(t, free.Purchasable())
	assert.True(t, pro.Purchasable())
}

func TestValidateAll(t *testing.T) {
	t.Parallel()

	mutate := func(fn func([]catalog.Plan) []catalog.Plan) []catalog.Plan {
		return fn(catalog.DefaultPlans())
	}

	tests := []struct {
		name    string
		plans   []catalog.Plan
		wantErr error
	}{
		{name: "defaults", plans: catalog.DefaultPlans()},
		{name: "empty", plans: nil, wantErr: catalog.ErrEmptyCatalog},
		{name: "no free", plans: catalog.DefaultPlans()[1:], wantErr: catalog.ErrMissingFree},
		{name: "duplicate id", plans: mutate(func(p []catalog.Plan) []catalog.Plan {
			p[2].ID = catalog.Pro
			return p
		}), wantErr: catalog.ErrInvalidPlan},
		{name: "duplicate rank", plans: mutate(func(p []catalog.Plan) []catalog.Plan {
			p[2].Rank = 1
			return p
		}), wantErr: catalog.ErrInvalidPlan},
		{name: "limit below unlimited", plans: mutate(func(p []catalog.Plan) []catalog.Plan {
			p[1].Limits.MaxForms = -2
			return p
		}), wantErr: catalog.ErrInvalidPlan},
		{name: "negative price", plans: mutate(func(p []catalog.Plan) []catalog.Plan {
			p[1].Price.Amount = -1
			return p
		}), wantErr: catalog.ErrInvalidPlan},
		{name: "bad currency", plans: mutate(func(p []catalog.Plan) []catalog.Plan {
			p[1].Price.Currency = "real"
			return p
		}), wantErr: catalog.ErrInvalidPlan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := catalog.ValidateAll(tt.plans)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodePlan(t *testing.T) {
	t.Parallel()

	base := catalog.DefaultPlans()[1]

	t.Run("coerces strings and numbers", func(t *testing.T) {
		t.Parallel()
		got, err := catalog.DecodePlan(fullPayload(), &base)
		require.NoError(t, err)
		assert.Equal(t, catalog.Limits{MaxLinks: 80, MaxForms: 10, MaxWebhooks: 5}, got.Limits)
		assert.Equal(t, catalog.FeatureFlags{ThemeEditing: true, Analytics: true}, got.Features)
		assert.EqualValues(t, 2990, got.Price.Amount)
		assert.Equal(t, "BRL", got.Price.Currency)
		assert.Equal(t, "Pro", got.Name)
		assert.EqualValues(t, 50, base.Limits.MaxLinks, "base must not be modified")
	})

	rejects := map[string]func(map[string]any){
		"missing limit": func(m map[string]any) {
			delete(m["limits"].(map[string]any), "maxForms")
		},
		"missing features object": func(m map[string]any) {
			delete(m, "features")
		},
		"empty string limit": func(m map[string]any) {
			m["limits"].(map[string]any)["maxLinks"] = " "
		},
		"non numeric limit": func(m map[string]any) {
			m["limits"].(map[string]any)["maxLinks"] = "many"
		},
		"fractional limit": func(m map[string]any) {
			m["limits"].(map[string]any)["maxLinks"] = 5.5
		},
		"boolean limit": func(m map[string]any) {
			m["limits"].(map[string]any)["maxLinks"] = true
		},
		"non boolean flag": func(m map[string]any) {
			m["features"].(map[string]any)["analytics"] = "sometimes"
		},
		"numeric flag out of range": func(m map[string]any) {
			m["features"].(map[string]any)["analytics"] = 7.0
		},
		"unknown key": func(m map[string]any) {
			m["maxImages"] = 3.0
		},
		"id change": func(m map[string]any) {
			m["id"] = "enterprise"
		},
		"limit below unlimited": func(m map[string]any) {
			m["limits"].(map[string]any)["maxWebhooks"] = -5.0
		},
	}
	for name, mutate := range rejects {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			raw := fullPayload()
			mutate(raw)
			_, err := catalog.DecodePlan(raw, &base)
			assert.ErrorIs(t, err, catalog.ErrInvalidPlan)
		})
	}

	t.Run("new plan requires id and name", func(t *testing.T) {
		t.Parallel()
		_, err := catalog.DecodePlan(fullPayload(), nil)
		assert.ErrorIs(t, err, catalog.ErrInvalidPlan)

		raw := fullPayload()
		raw["id"] = "agency"
		raw["name"] = "Agency"
		raw["rank"] = "3"
		got, err := catalog.DecodePlan(raw, nil)
		require.NoError(t, err)
		assert.Equal(t, "agency", got.ID)
		assert.Equal(t, 3, got.Rank)
		assert.Equal(t, catalog.DefaultCurrency, got.Price.Currency)
	})
}

func TestUpgradeFor(t *testing.T) {
	t.Parallel()

	plans := catalog.DefaultPlans()
	free, pro, business := plans[0], plans[1], plans[2]

	next, ok := catalog.UpgradeFor(plans, free, catalog.ResourceLinks)
	require.True(t, ok)
	assert.Equal(t, catalog.Pro, next.ID)

	next, ok = catalog.UpgradeFor(plans, pro, catalog.ResourceForms)
	require.True(t, ok)
	assert.Equal(t, catalog.Business, next.ID)

	_, ok = catalog.UpgradeFor(plans, business, catalog.ResourceForms)
	assert.False(t, ok)

	// A tier with the same limit is skipped in favour of one that raises it.
	plans[1].Limits.MaxForms = free.Limits.MaxForms
	next, ok = catalog.UpgradeFor(plans, free, catalog.ResourceForms)
	require.True(t, ok)
	assert.Equal(t, catalog.Business, next.ID)

	next, ok = catalog.UpgradeForFeature(plans, free, catalog.FeaturePrioritySupport)
	require.True(t, ok)
	assert.Equal(t, catalog.Business, next.ID)
}

func TestMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("get and all", func(t *testing.T) {
		t.Parallel()
		m := catalog.MustNewMemory(catalog.DefaultPlans())

		p, err := m.Get(ctx, catalog.Pro)
		require.NoError(t, err)
		assert.Equal(t, "Pro", p.Name)

		_, err = m.Get(ctx, "enterprise")
		assert.ErrorIs(t, err, catalog.ErrPlanNotFound)

		all, err := m.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, catalog.Free, all[0].ID)
	})

	t.Run("replace is all or nothing", func(t *testing.T) {
		t.Parallel()
		m := catalog.MustNewMemory(catalog.DefaultPlans())

		bad := catalog.DefaultPlans()
		bad[1].Limits.MaxLinks = 100
		bad[2].Limits.MaxForms = -9
		require.ErrorIs(t, m.Replace(ctx, bad), catalog.ErrInvalidPlan)

		p, _ := m.Get(ctx, catalog.Pro)
		assert.EqualValues(t, 50, p.Limits.MaxLinks)

		good := catalog.DefaultPlans()
		good[1].Limits.MaxLinks = 100
		require.NoError(t, m.Replace(ctx, good))
		p, _ = m.Get(ctx, catalog.Pro)
		assert.EqualValues(t, 100, p.Limits.MaxLinks)
	})

	t.Run("replace refuses to drop plan in use", func(t *testing.T) {
		t.Parallel()
		m := catalog.MustNewMemory(catalog.DefaultPlans(), catalog.WithInUseCheck(func(_ context.Context, id string) (bool, error) {
			return id == catalog.Business, nil
		}))
		require.ErrorIs(t, m.Replace(ctx, catalog.DefaultPlans()[:2]), catalog.ErrPlanInUse)

		plans := catalog.DefaultPlans()
		require.NoError(t, m.Replace(ctx, []catalog.Plan{plans[0], plans[2]}))
	})

	t.Run("in use lookup failure", func(t *testing.T) {
		t.Parallel()
		m := catalog.MustNewMemory(catalog.DefaultPlans(), catalog.WithInUseCheck(func(context.Context, string) (bool, error) {
			return false, errors.New("db down")
		}))
		assert.ErrorContains(t, m.Replace(ctx, catalog.DefaultPlans()[:2]), "db down")
	})

	t.Run("update rejects partial payload in full", func(t *testing.T) {
		t.Parallel()
		m := catalog.MustNewMemory(catalog.DefaultPlans())

		raw := fullPayload()
		raw["features"].(map[string]any)["analytics"] = "maybe"
		_, err := m.Update(ctx, catalog.Pro, raw)
		require.ErrorIs(t, err, catalog.ErrInvalidPlan)

		p, _ := m.Get(ctx, catalog.Pro)
		assert.EqualValues(t, 50, p.Limits.MaxLinks)

		updated, err := m.Update(ctx, catalog.Pro, fullPayload())
		require.NoError(t, err)
		assert.EqualValues(t, 80, updated.Limits.MaxLinks)

		p, _ = m.Get(ctx, catalog.Pro)
		assert.Equal(t, updated, p)
	})

	t.Run("update creates new plan", func(t *testing.T) {
		t.Parallel()
		m := catalog.MustNewMemory(catalog.DefaultPlans())

		raw := fullPayload()
		raw["name"] = "Agency"
		raw["rank"] = 3.0
		p, err := m.Update(ctx, "agency", raw)
		require.NoError(t, err)
		assert.Equal(t, "agency", p.ID)

		all, _ := m.All(ctx)
		assert.Len(t, all, 4)
		assert.Equal(t, "agency", all[3].ID)
	})

	t.Run("concurrent readers see whole catalogs", func(t *testing.T) {
		t.Parallel()
		m := catalog.MustNewMemory(catalog.DefaultPlans())
		alt := catalog.DefaultPlans()
		for i := range alt {
			alt[i].Price.Amount += 100
		}

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if i%2 == 0 {
					_ = m.Replace(ctx, alt)
					return
				}
				all, err := m.All(ctx)
				assert.NoError(t, err)
				assert.Len(t, all, 3)
			}()
		}
		wg.Wait()
	})
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	plans, err := catalog.LoadYAML("../../config/plans.yaml")
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultPlans(), plans)

	defaults, err := catalog.LoadYAML("")
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultPlans(), defaults)

	_, err = catalog.ParseYAML([]byte("plans:\n  - id: pro\n    name: Pro\n    rank: 1\n"))
	assert.ErrorIs(t, err, catalog.ErrCatalogLoad)

	_, err = catalog.ParseYAML([]byte("plans: []\nextra: true\n"))
	assert.ErrorIs(t, err, catalog.ErrCatalogLoad)

	_, err = catalog.LoadYAML("does-not-exist.yaml")
	assert.ErrorIs(t, err, catalog.ErrCatalogLoad)
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	got := catalog.FormatPrice(catalog.Price{Amount: 1990, Currency: "BRL"}, language.BrazilianPortuguese)
	assert.Contains(t, got, "R$")
	assert.Contains(t, got, "19")

	fallback := catalog.FormatPrice(catalog.Price{Amount: 500, Currency: "???"}, language.English)
	assert.Contains(t, fallback, "???")
}
