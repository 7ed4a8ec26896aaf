package billing

import (
	"context"
)

// Receipt describes a confirmed payment for the customer's receipt email.
type Receipt struct {
	Email    string
	Name     string
	Payment  Payment
	PlanName string
}

// Alert is an operator-facing report of a webhook that could not be applied.
type Alert struct {
	Provider      string
	EventID       string
	TransactionID string
	Reason        string
	Err           error
}

// Notifier delivers receipts and operator alerts. Delivery failures are
// logged by the caller and never affect billing state.
type Notifier interface {
	PaymentReceived(ctx context.Context, r Receipt) error
	OperatorAlert(ctx context.Context, a Alert) error
}

type nopNotifier struct{}

func (nopNotifier) PaymentReceived(context.Context, Receipt) error { return nil }
func (nopNotifier) OperatorAlert(context.Context, Alert) error     { return nil }
