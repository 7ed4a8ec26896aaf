package memstore

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/gateway"
)

// state implements billing.Repository without locking; Store holds the lock.

func (s *state) GetCustomerRef(_ context.Context, userID uuid.UUID, provider string) (billing.CustomerRef, error) {
	ref, ok := s.refs[refKey{userID, provider}]
	if !ok {
		return billing.CustomerRef{}, billing.ErrNotFound
	}
	return ref, nil
}

func (s *state) CreateCustomerRef(_ context.Context, ref billing.CustomerRef) error {
	k := refKey{ref.UserID, ref.Provider}
	if _, ok := s.refs[k]; ok {
		return billing.ErrDuplicate
	}
	s.refs[k] = ref
	return nil
}

func (s *state) CreatePayment(_ context.Context, p billing.Payment) error {
	k := txnKey{p.Provider, p.TransactionID}
	if _, ok := s.payments[p.ID]; ok {
		return billing.ErrDuplicate
	}
	if _, ok := s.byTxn[k]; ok {
		return billing.ErrDuplicate
	}
	s.payments[p.ID] = p
	s.byTxn[k] = p.ID
	return nil
}

func (s *state) GetPayment(_ context.Context, id uuid.UUID) (billing.Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return billing.Payment{}, billing.ErrNotFound
	}
	return p, nil
}

func (s *state) GetPaymentByTransaction(ctx context.Context, provider, transactionID string) (billing.Payment, error) {
	id, ok := s.byTxn[txnKey{provider, transactionID}]
	if !ok {
		return billing.Payment{}, billing.ErrNotFound
	}
	return s.GetPayment(ctx, id)
}

func (s *state) ListUserPayments(_ context.Context, userID uuid.UUID, limit int) ([]billing.Payment, error) {
	var out []billing.Payment
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return newestFirst(out, limit), nil
}

func (s *state) ListPayments(_ context.Context, f billing.PaymentFilter) ([]billing.Payment, error) {
	var out []billing.Payment
	for _, p := range s.payments {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && p.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !p.CreatedAt.Before(f.To) {
			continue
		}
		out = append(out, p)
	}
	return newestFirst(out, f.Limit), nil
}

func (s *state) TransitionPayment(_ context.Context, id uuid.UUID, from, to gateway.Status, processedAt *time.Time, now time.Time) (bool, error) {
	p, ok := s.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = now
	if p.ProcessedAt == nil && processedAt != nil {
		at := *processedAt
		p.ProcessedAt = &at
	}
	s.payments[id] = p
	return true, nil
}

func (s *state) LinkSubscription(_ context.Context, paymentID, subscriptionID uuid.UUID) error {
	p, ok := s.payments[paymentID]
	if !ok {
		return billing.ErrNotFound
	}
	p.SubscriptionID = &subscriptionID
	s.payments[paymentID] = p
	return nil
}

func (s *state) GetSubscription(_ context.Context, userID uuid.UUID) (billing.Subscription, error) {
	sub, ok := s.subs[userID]
	if !ok {
		return billing.Subscription{}, billing.ErrNotFound
	}
	return sub, nil
}

// LockSubscription needs no lock of its own: InTx holds the store mutex
// for the whole transaction.
func (s *state) LockSubscription(ctx context.Context, userID uuid.UUID) (billing.Subscription, error) {
	return s.GetSubscription(ctx, userID)
}

func (s *state) GetSubscriptionByID(_ context.Context, id uuid.UUID) (billing.Subscription, error) {
	for _, sub := range s.subs {
		if sub.ID == id {
			return sub, nil
		}
	}
	return billing.Subscription{}, billing.ErrNotFound
}

func (s *state) UpsertSubscription(_ context.Context, sub billing.Subscription) (billing.Subscription, error) {
	if existing, ok := s.subs[sub.UserID]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	}
	s.subs[sub.UserID] = sub
	return sub, nil
}

func (s *state) CancelSubscription(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	for userID, sub := range s.subs {
		if sub.ID != id {
			continue
		}
		if !sub.Status.Entitled() {
			return false, nil
		}
		sub.Status = billing.SubscriptionCanceled
		sub.EndDate = &at
		sub.UpdatedAt = at
		s.subs[userID] = sub
		return true, nil
	}
	return false, nil
}

func (s *state) ExpireSubscriptions(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for userID, sub := range s.subs {
		if !sub.Status.Entitled() || sub.EndDate == nil || sub.EndDate.After(now) {
			continue
		}
		sub.Status = billing.SubscriptionInactive
		sub.UpdatedAt = now
		s.subs[userID] = sub
		n++
	}
	return n, nil
}

func (s *state) PlanInUse(_ context.Context, planID string) (bool, error) {
	for _, sub := range s.subs {
		if sub.PlanID == planID && sub.Status.Entitled() {
			return true, nil
		}
	}
	return false, nil
}

func (s *state) RecordWebhookEvent(_ context.Context, e billing.WebhookEvent) (billing.WebhookEvent, bool, error) {
	k := eventKey{e.Provider, e.EventID}
	if existing, ok := s.events[k]; ok {
		return existing, false, nil
	}
	s.events[k] = e
	return e, true, nil
}

func (s *state) FinishWebhookEvent(_ context.Context, provider, eventID, outcome string, processedAt *time.Time) error {
	k := eventKey{provider, eventID}
	e, ok := s.events[k]
	if !ok {
		return billing.ErrNotFound
	}
	e.Outcome = outcome
	e.ProcessedAt = processedAt
	s.events[k] = e
	return nil
}

func newestFirst(ps []billing.Payment, limit int) []billing.Payment {
	slices.SortFunc(ps, func(a, b billing.Payment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(ps) > limit {
		ps = ps[:limit]
	}
	return ps
}
