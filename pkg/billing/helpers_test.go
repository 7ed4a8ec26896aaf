package billing_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/billing/memstore"
	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/gateway/gatewaytest"
)

const secret = "whsec_test"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type notifierMock struct {
	mock.Mock
}

func newNotifier() *notifierMock {
	n := &notifierMock{}
	n.On("PaymentReceived", mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("OperatorAlert", mock.Anything, mock.Anything).Return(nil).Maybe()
	return n
}

func (n *notifierMock) PaymentReceived(ctx context.Context, r billing.Receipt) error {
	return n.Called(ctx, r).Error(0)
}

func (n *notifierMock) OperatorAlert(ctx context.Context, a billing.Alert) error {
	return n.Called(ctx, a).Error(0)
}

func (n *notifierMock) alerts(reason string) int {
	count := 0
	for _, call := range n.Calls {
		if call.Method != "OperatorAlert" {
			continue
		}
		if a, ok := call.Arguments.Get(1).(billing.Alert); ok && a.Reason == reason {
			count++
		}
	}
	return count
}

type fixture struct {
	svc      *billing.Service
	store    billing.Store
	mem      *memstore.Store
	gw       *gatewaytest.Fake
	notifier *notifierMock
	clock    *clock
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	cfg   billing.Config
	store func(*memstore.Store) billing.Store
}

func withConfig(fn func(*billing.Config)) fixtureOption {
	return func(c *fixtureConfig) { fn(&c.cfg) }
}

func withStore(wrap func(*memstore.Store) billing.Store) fixtureOption {
	return func(c *fixtureConfig) { c.store = wrap }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	fc := fixtureConfig{cfg: billing.DefaultConfig()}
	fc.cfg.LookupInterval = time.Millisecond
	for _, opt := range opts {
		opt(&fc)
	}

	mem := memstore.New()
	var store billing.Store = mem
	if fc.store != nil {
		store = fc.store(mem)
	}

	f := &fixture{
		store:    store,
		mem:      mem,
		gw:       gatewaytest.New(secret),
		notifier: newNotifier(),
		clock:    newClock(),
	}
	f.svc = billing.NewService(fc.cfg, store, catalog.MustNewMemory(catalog.DefaultPlans()), f.gw,
		billing.WithNotifier(f.notifier),
		billing.WithClock(f.clock.Now),
	)
	return f
}

func customer() billing.CustomerData {
	return billing.CustomerData{
		Name:  "Ana Souza",
		Email: "ana@example.com",
		TaxID: "123.456.789-01",
		Phone: "(11) 98765-4321",
	}
}

var txnSeq atomic.Int64

func nextTxn() string {
	return fmt.Sprintf("pay_%04d", txnSeq.Add(1))
}

// expectCharge stubs one successful customer creation (when needed) and
// charge, returning the processor transaction id.
func (f *fixture) expectCharge(method gateway.Method) string {
	txn := nextTxn()
	f.gw.On("CreateCustomer", mock.Anything, mock.Anything).Return("cus_"+txn, nil).Maybe()
	charge := gateway.Charge{
		TransactionID: txn,
		Status:        gateway.StatusPending,
		PaymentURL:    "https://pay.example.com/i/" + txn,
	}
	if method == gateway.MethodPIX {
		charge.PixPayload = "00020126580014br.gov.bcb.pix0136" + txn
	}
	f.gw.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req gateway.ChargeRequest) bool {
		return req.Method == method
	})).Return(charge, nil).Once()
	return txn
}

func (f *fixture) checkout(t *testing.T, user uuid.UUID, planID string, method gateway.Method) billing.PaymentResponse {
	t.Helper()
	f.expectCharge(method)
	resp, err := f.svc.Checkout(context.Background(), billing.CheckoutInput{
		UserID:   user,
		PlanID:   planID,
		Method:   method,
		Customer: customer(),
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) deliver(t *testing.T, p gatewaytest.EventPayload) (billing.WebhookResult, error) {
	t.Helper()
	body := gatewaytest.EventBody(p)
	return f.svc.HandleWebhook(context.Background(), body, f.gw.Sign(body))
}

func (f *fixture) payment(t *testing.T, id uuid.UUID) billing.Payment {
	t.Helper()
	p, err := f.mem.GetPayment(context.Background(), id)
	require.NoError(t, err)
	return p
}

func ptr[T any](v T) *T { return &v }
