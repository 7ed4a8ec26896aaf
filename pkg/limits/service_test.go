package limits_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/limits"
)

type usage map[catalog.Resource]*atomic.Int64

func newUsage(links, forms, webhooks int64) usage {
	u := usage{
		catalog.ResourceLinks:    new(atomic.Int64),
		catalog.ResourceForms:    new(atomic.Int64),
		catalog.ResourceWebhooks: new(atomic.Int64),
	}
	u[catalog.ResourceLinks].Store(links)
	u[catalog.ResourceForms].Store(forms)
	u[catalog.ResourceWebhooks].Store(webhooks)
	return u
}

func (u usage) registry() limits.CounterRegistry {
	r := limits.NewRegistry()
	for res, n := range u {
		r.Register(res, func(context.Context, uuid.UUID) (int64, error) { return n.Load(), nil })
	}
	return r
}

func onPlan(planID string) limits.PlanResolver {
	return limits.PlanResolverFunc(func(context.Context, uuid.UUID) (string, error) { return planID, nil })
}

func newService(t *testing.T, planID string, u usage) *limits.Service {
	t.Helper()
	return limits.NewService(catalog.MustNewMemory(catalog.DefaultPlans()), u.registry(), onPlan(planID))
}

func TestCheckLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	user := uuid.New()

	t.Run("free user at link limit is denied", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, catalog.Free, newUsage(5, 0, 0))

		check, err := svc.CheckLimit(ctx, user, catalog.ResourceLinks)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.True(t, check.UpgradeRequired)
		assert.EqualValues(t, 5, check.Current)
		assert.EqualValues(t, 5, check.Limit)
		assert.Equal(t, catalog.Pro, check.UpgradeTo)
		assert.Contains(t, check.Message, "Pro")

		assert.ErrorIs(t, svc.CanCreate(ctx, user, catalog.ResourceLinks), limits.ErrLimitExceeded)
	})

	t.Run("business user is never limited", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, catalog.Business, newUsage(5_000, 900, 70))

		for _, res := range catalog.Resources {
			check, err := svc.CheckLimit(ctx, user, res)
			require.NoError(t, err)
			assert.True(t, check.Allowed, res)
			assert.False(t, check.UpgradeRequired, res)
			assert.Equal(t, catalog.Unlimited, check.Limit, res)
		}
	})

	t.Run("no subscription means free", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, "", newUsage(4, 1, 0))

		check, err := svc.CheckLimit(ctx, user, catalog.ResourceLinks)
		require.NoError(t, err)
		assert.True(t, check.Allowed)
		assert.EqualValues(t, 5, check.Limit)

		check, err = svc.CheckLimit(ctx, user, catalog.ResourceForms)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
	})

	t.Run("pro forms scenario names business", func(t *testing.T) {
		t.Parallel()
		u := newUsage(0, 4, 0)
		svc := newService(t, catalog.Pro, u)

		check, err := svc.CheckLimit(ctx, user, catalog.ResourceForms)
		require.NoError(t, err)
		require.True(t, check.Allowed)
		u[catalog.ResourceForms].Add(1) // the create-form the check allowed

		check, err = svc.CheckLimit(ctx, user, catalog.ResourceForms)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.True(t, check.UpgradeRequired)
		assert.EqualValues(t, 5, check.Current)
		assert.Equal(t, catalog.Business, check.UpgradeTo)
		assert.Contains(t, check.Message, "Business")
		assert.Contains(t, check.Message, "Form limit reached (5/5)")
	})

	t.Run("usage is re-read on every call", func(t *testing.T) {
		t.Parallel()
		u := newUsage(5, 0, 0)
		svc := newService(t, catalog.Free, u)

		check, err := svc.CheckLimit(ctx, user, catalog.ResourceLinks)
		require.NoError(t, err)
		assert.False(t, check.Allowed)

		u[catalog.ResourceLinks].Store(3)
		check, err = svc.CheckLimit(ctx, user, catalog.ResourceLinks)
		require.NoError(t, err)
		assert.True(t, check.Allowed)
	})

	t.Run("unknown plan fails closed", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, "legacy-gold", newUsage(0, 0, 0))

		check, err := svc.CheckLimit(ctx, user, catalog.ResourceLinks)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.Zero(t, check.Limit)

		feature, err := svc.CheckFeature(ctx, user, catalog.FeatureAnalytics)
		require.NoError(t, err)
		assert.False(t, feature.Allowed)
	})

	t.Run("unknown resource", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, catalog.Pro, newUsage(0, 0, 0))
		_, err := svc.CheckLimit(ctx, user, catalog.Resource("images"))
		assert.ErrorIs(t, err, limits.ErrUnknownResource)
	})

	t.Run("missing counter", func(t *testing.T) {
		t.Parallel()
		svc := limits.NewService(catalog.MustNewMemory(catalog.DefaultPlans()), nil, onPlan(catalog.Pro))
		_, err := svc.CheckLimit(ctx, user, catalog.ResourceLinks)
		assert.ErrorIs(t, err, limits.ErrNoCounterRegistered)
	})

	t.Run("counter failure", func(t *testing.T) {
		t.Parallel()
		reg := limits.NewRegistry().Register(catalog.ResourceLinks, func(context.Context, uuid.UUID) (int64, error) {
			return 0, errors.New("connection reset")
		})
		svc := limits.NewService(catalog.MustNewMemory(catalog.DefaultPlans()), reg, onPlan(catalog.Pro))
		_, err := svc.CheckLimit(ctx, user, catalog.ResourceLinks)
		assert.ErrorIs(t, err, limits.ErrFailedToCountResourceUsage)
	})

	t.Run("plan resolver failure", func(t *testing.T) {
		t.Parallel()
		resolver := limits.PlanResolverFunc(func(context.Context, uuid.UUID) (string, error) {
			return "", errors.New("db down")
		})
		svc := limits.NewService(catalog.MustNewMemory(catalog.DefaultPlans()), newUsage(0, 0, 0).registry(), resolver)
		_, err := svc.CheckLimit(ctx, user, catalog.ResourceLinks)
		assert.ErrorIs(t, err, limits.ErrFailedToResolvePlan)
	})

	t.Run("top tier with a finite limit points to support", func(t *testing.T) {
		t.Parallel()
		plans := catalog.DefaultPlans()
		plans[2].Limits.MaxWebhooks = 10
		svc := limits.NewService(catalog.MustNewMemory(plans), newUsage(0, 0, 10).registry(), onPlan(catalog.Business))

		check, err := svc.CheckLimit(ctx, user, catalog.ResourceWebhooks)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.Empty(t, check.UpgradeTo)
		assert.Contains(t, check.Message, "contact support")
	})
}

func TestCheckFeature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	user := uuid.New()

	svc := newService(t, catalog.Pro, newUsage(0, 0, 0))

	check, err := svc.CheckFeature(ctx, user, catalog.FeatureAnalytics)
	require.NoError(t, err)
	assert.True(t, check.Allowed)

	check, err = svc.CheckFeature(ctx, user, catalog.FeaturePrioritySupport)
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.True(t, check.UpgradeRequired)
	assert.Equal(t, catalog.Business, check.UpgradeTo)

	assert.True(t, svc.HasFeature(ctx, user, catalog.FeatureThemeEditing))
	assert.False(t, svc.HasFeature(ctx, user, catalog.Feature("sso")))

	_, err = svc.CheckFeature(ctx, user, catalog.Feature("sso"))
	assert.ErrorIs(t, err, limits.ErrUnknownFeature)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	svc := newService(t, catalog.Pro, newUsage(12, 5, 1))
	sum, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, catalog.Pro, sum.Plan.ID)
	assert.EqualValues(t, 50, sum.Limits.MaxLinks)
	assert.EqualValues(t, 12, sum.Usage[catalog.ResourceLinks])
	assert.True(t, sum.Checks[catalog.ResourceLinks].Allowed)
	assert.False(t, sum.Checks[catalog.ResourceForms].Allowed)
	assert.True(t, sum.Checks[catalog.ResourceWebhooks].Allowed)
	assert.True(t, sum.Features[catalog.FeatureAnalytics])
	assert.False(t, sum.Features[catalog.FeaturePrioritySupport])
	assert.Empty(t, sum.Message)
}

func TestSummaryUnknownPlanFailsClosed(t *testing.T) {
	t.Parallel()

	svc := newService(t, "legacy-gold", newUsage(2, 0, 1))
	sum, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, "legacy-gold", sum.Plan.ID)
	assert.NotEmpty(t, sum.Message)
	assert.EqualValues(t, 2, sum.Usage[catalog.ResourceLinks])
	for _, res := range catalog.Resources {
		assert.False(t, sum.Checks[res].Allowed, res)
		assert.Zero(t, sum.Checks[res].Limit, res)
	}
	for _, f := range catalog.Features {
		assert.False(t, sum.Features[f], f)
	}
}
