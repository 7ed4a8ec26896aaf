package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/pkg/gateway"
)

// Repository is the persistence contract of the billing service. Methods
// return ErrNotFound for missing rows and ErrDuplicate for unique
// violations.
type Repository interface {
	GetCustomerRef(ctx context.Context, userID uuid.UUID, provider string) (CustomerRef, error)
	CreateCustomerRef(ctx context.Context, ref CustomerRef) error

	CreatePayment(ctx context.Context, p Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (Payment, error)
	GetPaymentByTransaction(ctx context.Context, provider, transactionID string) (Payment, error)
	ListUserPayments(ctx context.Context, userID uuid.UUID, limit int) ([]Payment, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error)

	// TransitionPayment moves the payment from `from` to `to` only if its
	// stored status is still `from`. It reports whether a row changed.
	// processedAt only fills an empty processed_at; the first final
	// transition keeps its timestamp.
	TransitionPayment(ctx context.Context, id uuid.UUID, from, to gateway.Status, processedAt *time.Time, now time.Time) (bool, error)
	LinkSubscription(ctx context.Context, paymentID, subscriptionID uuid.UUID) error

	GetSubscription(ctx context.Context, userID uuid.UUID) (Subscription, error)
	GetSubscriptionByID(ctx context.Context, id uuid.UUID) (Subscription, error)

	// LockSubscription returns the user's subscription like GetSubscription
	// and blocks other LockSubscription calls for the same user until the
	// surrounding transaction ends. The lock is taken even when no row
	// exists yet. Outside InTx it holds nothing past the call.
	LockSubscription(ctx context.Context, userID uuid.UUID) (Subscription, error)

	// UpsertSubscription inserts or replaces the user's subscription row
	// keyed by user id and returns the stored row. The id of an existing
	// row is preserved.
	UpsertSubscription(ctx context.Context, s Subscription) (Subscription, error)

	// CancelSubscription marks the row canceled if it is still entitled.
	CancelSubscription(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// ExpireSubscriptions moves entitled rows whose end date is before now
	// to inactive and returns how many changed.
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)

	// PlanInUse reports whether an entitled subscription references planID.
	PlanInUse(ctx context.Context, planID string) (bool, error)

	// RecordWebhookEvent inserts the delivery unless (provider, event id)
	// is already logged, and returns the stored entry with created=true on
	// first sight.
	RecordWebhookEvent(ctx context.Context, e WebhookEvent) (stored WebhookEvent, created bool, err error)
	// FinishWebhookEvent sets the outcome. processedAt nil leaves the
	// delivery open for a retry.
	FinishWebhookEvent(ctx context.Context, provider, eventID, outcome string, processedAt *time.Time) error
}

// Store is a Repository that can run a function atomically.
type Store interface {
	Repository

	// InTx runs fn against a Repository bound to a single transaction.
	// The transaction commits when fn returns nil.
	InTx(ctx context.Context, fn func(r Repository) error) error
}
