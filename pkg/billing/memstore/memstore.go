// Package memstore is an in-memory billing.Store for tests and local runs.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/gateway"
)

type refKey struct {
	userID   uuid.UUID
	provider string
}

type txnKey struct {
	provider string
	id       string
}

type eventKey struct {
	provider string
	id       string
}

type state struct {
	refs     map[refKey]billing.CustomerRef
	payments map[uuid.UUID]billing.Payment
	byTxn    map[txnKey]uuid.UUID
	subs     map[uuid.UUID]billing.Subscription // by user id
	events   map[eventKey]billing.WebhookEvent
}

func newState() *state {
	return &state{
		refs:     make(map[refKey]billing.CustomerRef),
		payments: make(map[uuid.UUID]billing.Payment),
		byTxn:    make(map[txnKey]uuid.UUID),
		subs:     make(map[uuid.UUID]billing.Subscription),
		events:   make(map[eventKey]billing.WebhookEvent),
	}
}

func (s *state) clone() *state {
	return &state{
		refs:     maps.Clone(s.refs),
		payments: maps.Clone(s.payments),
		byTxn:    maps.Clone(s.byTxn),
		subs:     maps.Clone(s.subs),
		events:   maps.Clone(s.events),
	}
}

// Store guards a single state with a mutex. InTx works on a copy and
// swaps it in on success, so a failed function leaves no trace.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ billing.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) InTx(ctx context.Context, fn func(r billing.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.st.clone()
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx
	return nil
}

func (s *Store) locked() (*state, func()) {
	s.mu.Lock()
	return s.st, s.mu.Unlock
}

func (s *Store) GetCustomerRef(ctx context.Context, userID uuid.UUID, provider string) (billing.CustomerRef, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.GetCustomerRef(ctx, userID, provider)
}

func (s *Store) CreateCustomerRef(ctx context.Context, ref billing.CustomerRef) error {
	st, unlock := s.locked()
	defer unlock()
	return st.CreateCustomerRef(ctx, ref)
}

func (s *Store) CreatePayment(ctx context.Context, p billing.Payment) error {
	st, unlock := s.locked()
	defer unlock()
	return st.CreatePayment(ctx, p)
}

func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (billing.Payment, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.GetPayment(ctx, id)
}

func (s *Store) GetPaymentByTransaction(ctx context.Context, provider, transactionID string) (billing.Payment, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.GetPaymentByTransaction(ctx, provider, transactionID)
}

func (s *Store) ListUserPayments(ctx context.Context, userID uuid.UUID, limit int) ([]billing.Payment, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.ListUserPayments(ctx, userID, limit)
}

func (s *Store) ListPayments(ctx context.Context, f billing.PaymentFilter) ([]billing.Payment, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.ListPayments(ctx, f)
}

func (s *Store) TransitionPayment(ctx context.Context, id uuid.UUID, from, to gateway.Status, processedAt *time.Time, now time.Time) (bool, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.TransitionPayment(ctx, id, from, to, processedAt, now)
}

func (s *Store) LinkSubscription(ctx context.Context, paymentID, subscriptionID uuid.UUID) error {
	st, unlock := s.locked()
	defer unlock()
	return st.LinkSubscription(ctx, paymentID, subscriptionID)
}

func (s *Store) GetSubscription(ctx context.Context, userID uuid.UUID) (billing.Subscription, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.GetSubscription(ctx, userID)
}

func (s *Store) LockSubscription(ctx context.Context, userID uuid.UUID) (billing.Subscription, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.LockSubscription(ctx, userID)
}

func (s *Store) GetSubscriptionByID(ctx context.Context, id uuid.UUID) (billing.Subscription, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.GetSubscriptionByID(ctx, id)
}

func (s *Store) UpsertSubscription(ctx context.Context, sub billing.Subscription) (billing.Subscription, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.UpsertSubscription(ctx, sub)
}

func (s *Store) CancelSubscription(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.CancelSubscription(ctx, id, at)
}

func (s *Store) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.ExpireSubscriptions(ctx, now)
}

func (s *Store) PlanInUse(ctx context.Context, planID string) (bool, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.PlanInUse(ctx, planID)
}

func (s *Store) RecordWebhookEvent(ctx context.Context, e billing.WebhookEvent) (billing.WebhookEvent, bool, error) {
	st, unlock := s.locked()
	defer unlock()
	return st.RecordWebhookEvent(ctx, e)
}

func (s *Store) FinishWebhookEvent(ctx context.Context, provider, eventID, outcome string, processedAt *time.Time) error {
	st, unlock := s.locked()
	defer unlock()
	return st.FinishWebhookEvent(ctx, provider, eventID, outcome, processedAt)
}

// Subscriptions returns every stored subscription, for assertions.
func (s *Store) Subscriptions() []billing.Subscription {
	st, unlock := s.locked()
	defer unlock()
	return slices.Collect(maps.Values(st.subs))
}

// Payments returns every stored payment, for assertions.
func (s *Store) Payments() []billing.Payment {
	st, unlock := s.locked()
	defer unlock()
	return slices.Collect(maps.Values(st.payments))
}

// WebhookEvents returns the delivery log, for assertions.
func (s *Store) WebhookEvents() []billing.WebhookEvent {
	st, unlock := s.locked()
	defer unlock()
	return slices.Collect(maps.Values(st.events))
}
