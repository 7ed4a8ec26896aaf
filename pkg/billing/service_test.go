package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/gateway"
)

// subscribe runs a checkout and confirms it.
func (f *fixture) subscribe(t *testing.T, user uuid.UUID, planID string) billing.Subscription {
	t.Helper()
	resp := f.checkout(t, user, planID, gateway.MethodPIX)
	_, err := f.deliver(t, paidEvent(resp.TransactionID))
	require.NoError(t, err)
	sub, err := f.svc.Subscription(context.Background(), user)
	require.NoError(t, err)
	return sub
}

func TestCancel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("cancels the active subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		user := uuid.New()
		sub := f.subscribe(t, user, catalog.Pro)

		ok, err := f.svc.Cancel(ctx, user, sub.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		stored, err := f.svc.Subscription(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, billing.SubscriptionCanceled, stored.Status)
		require.NotNil(t, stored.EndDate)
		assert.Equal(t, f.clock.Now(), *stored.EndDate)

		planID, err := f.svc.ActivePlanID(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, planID)
	})

	t.Run("second cancel reports nothing active", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		user := uuid.New()
		sub := f.subscribe(t, user, catalog.Pro)

		_, err := f.svc.Cancel(ctx, user, sub.ID)
		require.NoError(t, err)
		ok, err := f.svc.Cancel(ctx, user, sub.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("user without subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ok, err := f.svc.Cancel(ctx, uuid.New(), uuid.Nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("cancel without id uses the user's subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		user := uuid.New()
		f.subscribe(t, user, catalog.Business)

		ok, err := f.svc.Cancel(ctx, user, uuid.Nil)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("someone else's subscription is not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner, other := uuid.New(), uuid.New()
		sub := f.subscribe(t, owner, catalog.Pro)

		ok, err := f.svc.Cancel(ctx, other, sub.ID)
		assert.ErrorIs(t, err, billing.ErrNotFound)
		assert.False(t, ok)

		stored, err := f.svc.Subscription(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, billing.SubscriptionActive, stored.Status)
	})

	t.Run("unknown subscription id is not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.Cancel(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, billing.ErrNotFound)
	})
}

func TestExpireSubscriptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	expiring, renewed := uuid.New(), uuid.New()

	f.subscribe(t, expiring, catalog.Pro)
	f.clock.Advance(10 * 24 * time.Hour)
	f.subscribe(t, renewed, catalog.Business)

	f.clock.Advance(25 * 24 * time.Hour)

	planID, err := f.svc.ActivePlanID(ctx, expiring)
	require.NoError(t, err)
	assert.Empty(t, planID, "a lapsed period no longer entitles the plan")

	n, err := f.svc.ExpireSubscriptions(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sub, err := f.svc.Subscription(ctx, expiring)
	require.NoError(t, err)
	assert.Equal(t, billing.SubscriptionInactive, sub.Status)

	planID, err = f.svc.ActivePlanID(ctx, renewed)
	require.NoError(t, err)
	assert.Equal(t, catalog.Business, planID)

	n, err = f.svc.ExpireSubscriptions(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPlanInUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	user := uuid.New()

	inUse, err := f.svc.PlanInUse(ctx, catalog.Pro)
	require.NoError(t, err)
	assert.False(t, inUse)

	f.subscribe(t, user, catalog.Pro)
	inUse, err = f.svc.PlanInUse(ctx, catalog.Pro)
	require.NoError(t, err)
	assert.True(t, inUse)

	cat := catalog.MustNewMemory(catalog.DefaultPlans(), catalog.WithInUseCheck(f.svc.PlanInUse))
	err = cat.Replace(ctx, catalog.DefaultPlans()[:1])
	assert.ErrorIs(t, err, catalog.ErrPlanInUse)
}

func TestPayments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	user, other := uuid.New(), uuid.New()

	first := f.checkout(t, user, catalog.Pro, gateway.MethodPIX)
	f.clock.Advance(time.Hour)
	second := f.checkout(t, user, catalog.Business, gateway.MethodCreditCard)
	f.clock.Advance(time.Hour)
	foreign := f.checkout(t, other, catalog.Pro, gateway.MethodPIX)

	_, err := f.deliver(t, paidEvent(second.TransactionID))
	require.NoError(t, err)

	t.Run("status of own payment", func(t *testing.T) {
		got, err := f.svc.GetPayment(ctx, user, second.ID)
		require.NoError(t, err)
		assert.Equal(t, gateway.StatusPaid, got.Status)
		assert.NotNil(t, got.ProcessedAt)
		assert.Empty(t, got.PixQRCode)
	})

	t.Run("pending pix payment renders the qr code", func(t *testing.T) {
		got, err := f.svc.GetPayment(ctx, user, first.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, got.PixQRCode)
	})

	t.Run("someone else's payment is not found", func(t *testing.T) {
		_, err := f.svc.GetPayment(ctx, user, foreign.ID)
		assert.ErrorIs(t, err, billing.ErrNotFound)
		_, err = f.svc.GetPayment(ctx, user, uuid.New())
		assert.ErrorIs(t, err, billing.ErrNotFound)
	})

	t.Run("history is newest first and scoped to the user", func(t *testing.T) {
		list, err := f.svc.ListPayments(ctx, user, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)
	})

	t.Run("sales report totals", func(t *testing.T) {
		report, err := f.svc.SalesReport(ctx, billing.PaymentFilter{})
		require.NoError(t, err)
		assert.Len(t, report.Payments, 3)
		assert.Equal(t, []billing.Total{
			{Status: gateway.StatusPending, Currency: "BRL", Count: 2, Amount: 3980},
			{Status: gateway.StatusPaid, Currency: "BRL", Count: 1, Amount: 4990},
		}, report.Totals)

		paid, err := f.svc.SalesReport(ctx, billing.PaymentFilter{Status: gateway.StatusPaid})
		require.NoError(t, err)
		require.Len(t, paid.Payments, 1)
		assert.Equal(t, second.ID, paid.Payments[0].ID)

		window, err := f.svc.SalesReport(ctx, billing.PaymentFilter{
			From: first.CreatedAt.Add(time.Minute),
			To:   foreign.CreatedAt,
		})
		require.NoError(t, err)
		require.Len(t, window.Payments, 1)
		assert.Equal(t, second.ID, window.Payments[0].ID)
		require.NotNil(t, window.From)
	})

	t.Run("sales report rejects unknown status", func(t *testing.T) {
		_, err := f.svc.SalesReport(ctx, billing.PaymentFilter{Status: "overdue"})
		assert.ErrorIs(t, err, gateway.ErrUnknownStatus)
	})
}

func TestLifecycleTable(t *testing.T) {
	t.Parallel()
	m := billing.PaymentLifecycle

	assert.ElementsMatch(t, []gateway.Status{gateway.StatusPaid, gateway.StatusFailed, gateway.StatusCanceled}, m.Targets(gateway.StatusPending))
	assert.Equal(t, []gateway.Status{gateway.StatusRefunded}, m.Targets(gateway.StatusPaid))
	for _, s := range []gateway.Status{gateway.StatusFailed, gateway.StatusRefunded, gateway.StatusCanceled} {
		assert.True(t, m.IsTerminal(s), s)
	}
	assert.True(t, m.ValidPath(gateway.StatusPending, gateway.StatusPaid, gateway.StatusRefunded))
	assert.False(t, m.ValidPath(gateway.StatusPending, gateway.StatusRefunded))
}
