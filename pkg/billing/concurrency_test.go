package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/billing/memstore"
	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/gateway"
)

// readCommittedStore runs transactions concurrently the way Postgres does
// under READ COMMITTED: each statement is atomic but InTx takes no global
// lock. Only LockSubscription blocks, per user, until the transaction
// returns.
type readCommittedStore struct {
	*memstore.Store

	mu    sync.Mutex
	users map[uuid.UUID]*sync.Mutex
}

func newReadCommittedStore(mem *memstore.Store) billing.Store {
	return &readCommittedStore{Store: mem, users: make(map[uuid.UUID]*sync.Mutex)}
}

func (s *readCommittedStore) userLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.users[id]
	if !ok {
		m = &sync.Mutex{}
		s.users[id] = m
	}
	return m
}

func (s *readCommittedStore) InTx(_ context.Context, fn func(r billing.Repository) error) error {
	tx := &readCommittedTx{Store: s.Store, parent: s}
	defer tx.release()
	return fn(tx)
}

type readCommittedTx struct {
	*memstore.Store

	parent *readCommittedStore
	held   []*sync.Mutex
}

func (tx *readCommittedTx) LockSubscription(ctx context.Context, userID uuid.UUID) (billing.Subscription, error) {
	m := tx.parent.userLock(userID)
	m.Lock()
	tx.held = append(tx.held, m)
	sub, err := tx.Store.GetSubscription(ctx, userID)
	// Widen the gap between read and write like a network round trip.
	time.Sleep(5 * time.Millisecond)
	return sub, err
}

func (tx *readCommittedTx) release() {
	for _, m := range tx.held {
		m.Unlock()
	}
}

func parallel(n int, fn func(i int)) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			fn(i)
		}()
	}
	close(start)
	wg.Wait()
}

func TestHandleWebhook_ConcurrentDuplicateDeliveries(t *testing.T) {
	t.Parallel()
	f := newFixture(t, withStore(newReadCommittedStore))
	user := uuid.New()
	resp := f.checkout(t, user, catalog.Pro, gateway.MethodPIX)

	const n = 8
	results := make([]billing.WebhookResult, n)
	errs := make([]error, n)
	parallel(n, func(i int) {
		results[i], errs[i] = f.deliver(t, paidEvent(resp.TransactionID))
	})

	applied := 0
	for i := range n {
		require.NoError(t, errs[i])
		if !results[i].Duplicate && results[i].Outcome == billing.OutcomeApplied {
			applied++
		}
	}
	assert.Equal(t, 1, applied)

	p := f.payment(t, resp.ID)
	assert.Equal(t, gateway.StatusPaid, p.Status)
	require.NotNil(t, p.ProcessedAt)
	processedAt := *p.ProcessedAt

	f.clock.Advance(time.Hour)
	_, err := f.deliver(t, paidEvent(resp.TransactionID))
	require.NoError(t, err)
	assert.Equal(t, processedAt, *f.payment(t, resp.ID).ProcessedAt)

	assert.Len(t, f.mem.Subscriptions(), 1)
	f.notifier.AssertNumberOfCalls(t, "PaymentReceived", 1)
}

func TestHandleWebhook_ConcurrentPaymentsForOneUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t, withStore(newReadCommittedStore))
	user := uuid.New()
	start := f.clock.Now()

	first := f.checkout(t, user, catalog.Pro, gateway.MethodPIX)
	second := f.checkout(t, user, catalog.Pro, gateway.MethodPIX)

	txns := []string{first.TransactionID, second.TransactionID}
	errs := make([]error, len(txns))
	parallel(len(txns), func(i int) {
		_, errs[i] = f.deliver(t, paidEvent(txns[i]))
	})
	for _, err := range errs {
		require.NoError(t, err)
	}

	sub, err := f.svc.Subscription(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, catalog.Pro, sub.PlanID)
	assert.Equal(t, start, sub.StartDate)
	require.NotNil(t, sub.EndDate)
	assert.Equal(t, start.Add(2*30*24*time.Hour), *sub.EndDate, "each paid period must be added")

	assert.Equal(t, gateway.StatusPaid, f.payment(t, first.ID).Status)
	assert.Equal(t, gateway.StatusPaid, f.payment(t, second.ID).Status)
	f.notifier.AssertNumberOfCalls(t, "PaymentReceived", 2)
}
