// Package pgstore is the PostgreSQL implementation of billing.Store.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/pg"
)

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	pg.Querier
	pg.TxBeginner
}

// Store runs every Repository method on the pool, and InTx on one
// transaction.
type Store struct {
	*repo
	db DB
}

var _ billing.Store = (*Store)(nil)

func New(db DB) *Store {
	return &Store{repo: &repo{db: db}, db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(r billing.Repository) error) error {
	return pg.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&repo{db: tx})
	})
}

type repo struct {
	db pg.Querier
}

type scanner interface {
	Scan(dest ...any) error
}

// mapErr converts pgx errors into billing sentinels.
func mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case pg.IsNotFoundError(err):
		return billing.ErrNotFound
	case pg.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w (%s)", op, billing.ErrDuplicate, pg.ConstraintName(err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

const customerRefColumns = `user_id, provider, external_id, name, email, tax_id, created_at`

func (r *repo) GetCustomerRef(ctx context.Context, userID uuid.UUID, provider string) (billing.CustomerRef, error) {
	var ref billing.CustomerRef
	err := r.db.QueryRow(ctx,
		`SELECT `+customerRefColumns+` FROM customer_refs WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	).Scan(&ref.UserID, &ref.Provider, &ref.ExternalID, &ref.Name, &ref.Email, &ref.TaxID, &ref.CreatedAt)
	return ref, mapErr("get customer ref", err)
}

func (r *repo) CreateCustomerRef(ctx context.Context, ref billing.CustomerRef) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO customer_refs (`+customerRefColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ref.UserID, ref.Provider, ref.ExternalID, ref.Name, ref.Email, ref.TaxID, ref.CreatedAt,
	)
	return mapErr("create customer ref", err)
}

const paymentColumns = `id, user_id, subscription_id, plan_id, amount, currency, method, provider,
	transaction_id, status, payment_url, pix_payload, created_at, processed_at, updated_at`

func scanPayment(row scanner) (billing.Payment, error) {
	var p billing.Payment
	err := row.Scan(
		&p.ID, &p.UserID, &p.SubscriptionID, &p.PlanID, &p.Amount, &p.Currency, &p.Method, &p.Provider,
		&p.TransactionID, &p.Status, &p.PaymentURL, &p.PixPayload, &p.CreatedAt, &p.ProcessedAt, &p.UpdatedAt,
	)
	return p, err
}

func (r *repo) CreatePayment(ctx context.Context, p billing.Payment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.UserID, p.SubscriptionID, p.PlanID, p.Amount, p.Currency, p.Method, p.Provider,
		p.TransactionID, p.Status, p.PaymentURL, p.PixPayload, p.CreatedAt, p.ProcessedAt, p.UpdatedAt,
	)
	return mapErr("create payment", err)
}

func (r *repo) GetPayment(ctx context.Context, id uuid.UUID) (billing.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	return p, mapErr("get payment", err)
}

func (r *repo) GetPaymentByTransaction(ctx context.Context, provider, transactionID string) (billing.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider = $1 AND transaction_id = $2`,
		provider, transactionID,
	))
	return p, mapErr("get payment by transaction", err)
}

func (r *repo) ListUserPayments(ctx context.Context, userID uuid.UUID, limit int) ([]billing.Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, mapErr("list user payments", err)
	}
	return collectPayments(rows)
}

func (r *repo) ListPayments(ctx context.Context, f billing.PaymentFilter) ([]billing.Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments
		WHERE ($1 = '' OR status = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC
		LIMIT $4`,
		string(f.Status), nullTime(f.From), nullTime(f.To), f.Limit,
	)
	if err != nil {
		return nil, mapErr("list payments", err)
	}
	return collectPayments(rows)
}

func collectPayments(rows pgx.Rows) ([]billing.Payment, error) {
	ps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (billing.Payment, error) {
		return scanPayment(row)
	})
	return ps, mapErr("scan payments", err)
}

func (r *repo) TransitionPayment(ctx context.Context, id uuid.UUID, from, to gateway.Status, processedAt *time.Time, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE payments
		SET status = $3, processed_at = COALESCE(processed_at, $4), updated_at = $5
		WHERE id = $1 AND status = $2`,
		id, from, to, processedAt, now,
	)
	if err != nil {
		return false, mapErr("transition payment", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repo) LinkSubscription(ctx context.Context, paymentID, subscriptionID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE payments SET subscription_id = $2 WHERE id = $1`,
		paymentID, subscriptionID,
	)
	if err != nil {
		return mapErr("link subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrNotFound
	}
	return nil
}

const subscriptionColumns = `id, user_id, plan_id, plan_name, status, start_date, end_date, created_at, updated_at`

func scanSubscription(row scanner) (billing.Subscription, error) {
	var s billing.Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PlanName, &s.Status, &s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repo) GetSubscription(ctx context.Context, userID uuid.UUID) (billing.Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID))
	return s, mapErr("get subscription", err)
}

// LockSubscription serializes on a transaction-scoped advisory lock keyed
// by the user, which also covers the first insert, then locks the row.
func (r *repo) LockSubscription(ctx context.Context, userID uuid.UUID) (billing.Subscription, error) {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID.String()); err != nil {
		return billing.Subscription{}, mapErr("lock subscription", err)
	}
	s, err := scanSubscription(r.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 FOR UPDATE`, userID))
	return s, mapErr("lock subscription", err)
}

func (r *repo) GetSubscriptionByID(ctx context.Context, id uuid.UUID) (billing.Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id))
	return s, mapErr("get subscription by id", err)
}

func (r *repo) UpsertSubscription(ctx context.Context, s billing.Subscription) (billing.Subscription, error) {
	stored, err := scanSubscription(r.db.QueryRow(ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			plan_name = EXCLUDED.plan_name,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = EXCLUDED.updated_at
		RETURNING `+subscriptionColumns,
		s.ID, s.UserID, s.PlanID, s.PlanName, s.Status, s.StartDate, s.EndDate, s.CreatedAt, s.UpdatedAt,
	))
	return stored, mapErr("upsert subscription", err)
}

func (r *repo) CancelSubscription(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET status = $2, end_date = $3, updated_at = $3
		WHERE id = $1 AND status IN ($4, $5)`,
		id, billing.SubscriptionCanceled, at, billing.SubscriptionActive, billing.SubscriptionTrial,
	)
	if err != nil {
		return false, mapErr("cancel subscription", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repo) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET status = $1, updated_at = $2
		WHERE status IN ($3, $4) AND end_date IS NOT NULL AND end_date <= $2`,
		billing.SubscriptionInactive, now, billing.SubscriptionActive, billing.SubscriptionTrial,
	)
	if err != nil {
		return 0, mapErr("expire subscriptions", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repo) PlanInUse(ctx context.Context, planID string) (bool, error) {
	var inUse bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE plan_id = $1 AND status IN ($2, $3))`,
		planID, billing.SubscriptionActive, billing.SubscriptionTrial,
	).Scan(&inUse)
	return inUse, mapErr("plan in use", err)
}

const webhookEventColumns = `provider, event_id, kind, transaction_id, status, verified, payload, outcome, received_at, processed_at`

func scanWebhookEvent(row scanner) (billing.WebhookEvent, error) {
	var e billing.WebhookEvent
	err := row.Scan(&e.Provider, &e.EventID, &e.Kind, &e.TransactionID, &e.Status, &e.Verified,
		&e.Payload, &e.Outcome, &e.ReceivedAt, &e.ProcessedAt)
	return e, err
}

func (r *repo) RecordWebhookEvent(ctx context.Context, e billing.WebhookEvent) (billing.WebhookEvent, bool, error) {
	stored, err := scanWebhookEvent(r.db.QueryRow(ctx,
		`INSERT INTO billing_webhook_events (`+webhookEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (provider, event_id) DO NOTHING
		RETURNING `+webhookEventColumns,
		e.Provider, e.EventID, e.Kind, e.TransactionID, e.Status, e.Verified,
		e.Payload, e.Outcome, e.ReceivedAt, e.ProcessedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return billing.WebhookEvent{}, false, mapErr("record webhook event", err)
	}

	stored, err = scanWebhookEvent(r.db.QueryRow(ctx,
		`SELECT `+webhookEventColumns+` FROM billing_webhook_events WHERE provider = $1 AND event_id = $2`,
		e.Provider, e.EventID,
	))
	return stored, false, mapErr("load webhook event", err)
}

func (r *repo) FinishWebhookEvent(ctx context.Context, provider, eventID, outcome string, processedAt *time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE billing_webhook_events SET outcome = $3, processed_at = $4
		WHERE provider = $1 AND event_id = $2`,
		provider, eventID, outcome, processedAt,
	)
	return mapErr("finish webhook event", err)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
