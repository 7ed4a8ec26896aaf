package billing

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/pkg/gateway"
)

// DefaultHistoryLimit bounds ListPayments and unbounded report queries.
const DefaultHistoryLimit = 100

// GetPayment returns the user's payment. Payments owned by someone else
// are reported as ErrNotFound.
func (s *Service) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (PaymentResponse, error) {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return PaymentResponse{}, err
	}
	if p.UserID != userID {
		return PaymentResponse{}, ErrNotFound
	}
	return s.response(ctx, p), nil
}

// ListPayments returns the user's payments, newest first.
func (s *Service) ListPayments(ctx context.Context, userID uuid.UUID, limit int) ([]PaymentResponse, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	payments, err := s.store.ListUserPayments(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, s.response(ctx, p))
	}
	return out, nil
}

// Total sums payments sharing a status and currency.
type Total struct {
	Status   gateway.Status `json:"status"`
	Currency string         `json:"currency"`
	Count    int            `json:"count"`
	Amount   int64          `json:"amount"`
}

// SalesReport is the administrator view of payments in a period.
type SalesReport struct {
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
	Payments []Payment  `json:"payments"`
	Totals   []Total    `json:"totals"`
}

// SalesReport lists payments matching f with per status and currency totals.
func (s *Service) SalesReport(ctx context.Context, f PaymentFilter) (SalesReport, error) {
	if f.Status != "" && !f.Status.Valid() {
		return SalesReport{}, gateway.ErrUnknownStatus
	}
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	payments, err := s.store.ListPayments(ctx, f)
	if err != nil {
		return SalesReport{}, err
	}

	report := SalesReport{Payments: payments, Totals: totals(payments)}
	if !f.From.IsZero() {
		report.From = &f.From
	}
	if !f.To.IsZero() {
		report.To = &f.To
	}
	return report, nil
}

func totals(payments []Payment) []Total {
	type key struct {
		status   gateway.Status
		currency string
	}
	byKey := make(map[key]*Total)
	for _, p := range payments {
		k := key{p.Status, p.Currency}
		t, ok := byKey[k]
		if !ok {
			t = &Total{Status: p.Status, Currency: p.Currency}
			byKey[k] = t
		}
		t.Count++
		t.Amount += p.Amount
	}

	out := make([]Total, 0, len(byKey))
	for _, t := range byKey {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b Total) int {
		if a.Status != b.Status {
			return slices.Index(gateway.Statuses, a.Status) - slices.Index(gateway.Statuses, b.Status)
		}
		return cmp.Compare(a.Currency, b.Currency)
	})
	return out
}
