package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/logger"
)

// Anomaly reasons logged for acknowledged but unapplied deliveries.
const (
	ReasonUnsignedDelivery     = "unsigned_delivery"
	ReasonUnmappedStatus       = "unmapped_status"
	ReasonUnknownPayment       = "unknown_payment"
	ReasonDuplicateStatus      = "duplicate_status"
	ReasonInvalidTransition    = "invalid_transition"
	ReasonConcurrentTransition = "concurrent_transition"
	ReasonAmountMismatch       = "amount_mismatch"
	ReasonInternalError        = "internal_error"
)

// WebhookResult describes what a delivery did. It is returned for every
// acknowledged delivery, including ones that changed nothing.
type WebhookResult struct {
	Provider  string         `json:"provider"`
	EventID   string         `json:"eventId,omitempty"`
	Verified  bool           `json:"verified"`
	Duplicate bool           `json:"duplicate,omitempty"`
	Outcome   string         `json:"outcome"`
	PaymentID *uuid.UUID     `json:"paymentId,omitempty"`
	From      gateway.Status `json:"from,omitempty"`
	To        gateway.Status `json:"to,omitempty"`
}

// HandleWebhook processes a delivery from the primary gateway.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	return s.HandleProviderWebhook(ctx, s.primary.Name(), body, signature)
}

// HandleProviderWebhook authenticates, parses and applies one webhook
// delivery. Only ErrInvalidSignature and ErrMalformedEvent are returned;
// every other outcome, internal failures included, is acknowledged so the
// processor stops redelivering, and reported through logs and alerts.
func (s *Service) HandleProviderWebhook(ctx context.Context, provider string, body []byte, signature string) (WebhookResult, error) {
	gw, ok := s.gateways[provider]
	if !ok {
		return WebhookResult{}, ErrUnknownGateway
	}
	res := WebhookResult{Provider: provider}
	log := s.log.With(logger.Provider(provider))

	switch {
	case signature == "" && s.cfg.RequireSignature:
		log.WarnContext(ctx, "webhook rejected: signature required", logger.Event("webhook_rejected"))
		return res, errors.Join(ErrInvalidSignature, gateway.ErrMissingSignature)
	case signature == "":
		log.WarnContext(ctx, "webhook anomaly",
			logger.Event("webhook_anomaly"),
			logger.Reason(ReasonUnsignedDelivery),
		)
	default:
		if err := gw.VerifySignature(body, signature); err != nil {
			log.WarnContext(ctx, "webhook rejected: bad signature",
				logger.Event("webhook_rejected"),
				logger.Error(err),
			)
			return res, errors.Join(ErrInvalidSignature, err)
		}
		res.Verified = true
	}

	evt, err := gw.ParseEvent(body)
	if err != nil {
		log.WarnContext(ctx, "webhook rejected: malformed body",
			logger.Event("webhook_rejected"),
			logger.Error(err),
		)
		return res, errors.Join(ErrMalformedEvent, err)
	}
	res.EventID = evt.ID
	log = log.With(
		logger.EventType(evt.Kind),
		logger.TransactionID(evt.TransactionID),
		slog.String("event_id", evt.ID),
	)

	entry, created, err := s.store.RecordWebhookEvent(ctx, WebhookEvent{
		Provider:      provider,
		EventID:       evt.ID,
		Kind:          evt.Kind,
		TransactionID: evt.TransactionID,
		Status:        evt.RawStatus,
		Verified:      res.Verified,
		Payload:       body,
		Outcome:       OutcomeReceived,
		ReceivedAt:    s.now(),
	})
	if err != nil {
		s.internalError(ctx, log, provider, evt, err)
		res.Outcome = OutcomeError
		return res, nil
	}
	if !created && entry.Processed() {
		log.InfoContext(ctx, "webhook already processed", logger.Event("webhook_duplicate"))
		res.Duplicate = true
		res.Outcome = entry.Outcome
		return res, nil
	}

	outcome, err := s.apply(ctx, log, provider, evt, &res)
	if err != nil {
		s.internalError(ctx, log, provider, evt, err)
		s.finishEvent(ctx, log, provider, evt.ID, OutcomeError, nil)
		res.Outcome = OutcomeError
		return res, nil
	}
	now := s.now()
	s.finishEvent(ctx, log, provider, evt.ID, outcome, &now)
	res.Outcome = outcome
	return res, nil
}

// apply moves the payment named by evt along the lifecycle. It returns an
// error only for failures worth a redelivery; skipped events return their
// outcome with a nil error.
func (s *Service) apply(ctx context.Context, log *slog.Logger, provider string, evt gateway.Event, res *WebhookResult) (string, error) {
	if !evt.Status.Valid() {
		s.anomaly(ctx, log, ReasonUnmappedStatus, slog.String("raw_status", evt.RawStatus))
		return OutcomeIgnored, nil
	}

	p, err := s.lookupPayment(ctx, provider, evt.TransactionID)
	if errors.Is(err, ErrNotFound) {
		s.anomaly(ctx, log, ReasonUnknownPayment)
		s.alert(ctx, log, provider, evt, ReasonUnknownPayment, nil)
		return OutcomeUnknownPayment, nil
	}
	if err != nil {
		return "", err
	}

	log = log.With(logger.PaymentID(p.ID), logger.UserID(p.UserID))
	res.PaymentID = &p.ID
	res.From, res.To = p.Status, evt.Status

	if p.Status == evt.Status {
		s.anomaly(ctx, log, ReasonDuplicateStatus, logger.Status(string(p.Status)))
		return OutcomeIgnored, nil
	}
	if !PaymentLifecycle.Can(ctx, p.Status, evt.Status, p) {
		s.anomaly(ctx, log, ReasonInvalidTransition,
			logger.Transition(string(p.Status), string(evt.Status)))
		s.alert(ctx, log, provider, evt, ReasonInvalidTransition, nil)
		return OutcomeIgnored, nil
	}
	s.reconcileAmount(ctx, log, provider, evt, p)

	var (
		applied bool
		sub     *Subscription
	)
	err = s.store.InTx(ctx, func(r Repository) error {
		now := s.now()
		var processedAt *time.Time
		if isFinal(evt.Status) {
			processedAt = &now
		}
		ok, err := r.TransitionPayment(ctx, p.ID, p.Status, evt.Status, processedAt, now)
		if err != nil || !ok {
			return err
		}
		applied = true

		if evt.Status != gateway.StatusPaid {
			return nil
		}
		activated, err := s.activate(ctx, r, p, now)
		if err != nil {
			return err
		}
		sub = &activated
		return r.LinkSubscription(ctx, p.ID, activated.ID)
	})
	if err != nil {
		return "", err
	}
	if !applied {
		s.anomaly(ctx, log, ReasonConcurrentTransition,
			logger.Transition(string(p.Status), string(evt.Status)))
		return OutcomeIgnored, nil
	}

	log.InfoContext(ctx, "payment status changed",
		logger.Event("payment_transition"),
		logger.Transition(string(p.Status), string(evt.Status)),
	)
	if sub != nil {
		log.InfoContext(ctx, "subscription activated",
			logger.Event("subscription_activated"),
			logger.SubscriptionID(sub.ID),
			logger.PlanID(sub.PlanID),
		)
		s.sendReceipt(ctx, log, p, *sub)
	}
	return OutcomeApplied, nil
}

// activate upserts the user's subscription for the period bought by p.
// Paying again for the plan already held extends the current period. The
// read and the upsert happen under the user's subscription lock, so two
// payments settling together extend the period twice.
func (s *Service) activate(ctx context.Context, r Repository, p Payment, now time.Time) (Subscription, error) {
	planName := p.PlanID
	if plan, err := s.catalog.Get(ctx, p.PlanID); err == nil {
		planName = plan.Name
	}

	start, periodStart := now, now
	current, err := r.LockSubscription(ctx, p.UserID)
	switch {
	case err == nil:
		if current.PlanID == p.PlanID && current.Live(now) {
			start = current.StartDate
			if current.EndDate != nil {
				periodStart = *current.EndDate
			}
		}
	case !errors.Is(err, ErrNotFound):
		return Subscription{}, err
	}
	end := periodStart.Add(s.cfg.Period)

	return r.UpsertSubscription(ctx, Subscription{
		ID:        uuid.New(),
		UserID:    p.UserID,
		PlanID:    p.PlanID,
		PlanName:  planName,
		Status:    SubscriptionActive,
		StartDate: start,
		EndDate:   &end,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// lookupPayment retries a missing payment briefly: the webhook may race
// the checkout insert.
func (s *Service) lookupPayment(ctx context.Context, provider, transactionID string) (Payment, error) {
	for attempt := 1; ; attempt++ {
		p, err := s.store.GetPaymentByTransaction(ctx, provider, transactionID)
		if !errors.Is(err, ErrNotFound) || attempt >= s.cfg.LookupAttempts {
			return p, err
		}
		if err := sleep(ctx, s.cfg.LookupInterval); err != nil {
			return Payment{}, err
		}
	}
}

func (s *Service) reconcileAmount(ctx context.Context, log *slog.Logger, provider string, evt gateway.Event, p Payment) {
	if evt.Amount == nil || *evt.Amount == p.Amount {
		return
	}
	s.anomaly(ctx, log, ReasonAmountMismatch,
		slog.String("expected", decimal.New(p.Amount, -2).StringFixed(2)),
		slog.String("received", decimal.New(*evt.Amount, -2).StringFixed(2)),
	)
	s.alert(ctx, log, provider, evt, ReasonAmountMismatch, nil)
}

func (s *Service) anomaly(ctx context.Context, log *slog.Logger, reason string, attrs ...any) {
	args := append([]any{logger.Event("webhook_anomaly"), logger.Reason(reason)}, attrs...)
	log.WarnContext(ctx, "webhook anomaly", args...)
}

func (s *Service) internalError(ctx context.Context, log *slog.Logger, provider string, evt gateway.Event, err error) {
	log.ErrorContext(ctx, "webhook processing failed",
		logger.Event("webhook_error"),
		logger.Reason(ReasonInternalError),
		logger.Error(err),
	)
	s.alert(ctx, log, provider, evt, ReasonInternalError, err)
}

func (s *Service) alert(ctx context.Context, log *slog.Logger, provider string, evt gateway.Event, reason string, cause error) {
	err := s.notifier.OperatorAlert(ctx, Alert{
		Provider:      provider,
		EventID:       evt.ID,
		TransactionID: evt.TransactionID,
		Reason:        reason,
		Err:           cause,
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to send operator alert", logger.Error(err))
	}
}

func (s *Service) sendReceipt(ctx context.Context, log *slog.Logger, p Payment, sub Subscription) {
	ref, err := s.store.GetCustomerRef(ctx, p.UserID, p.Provider)
	if err != nil {
		log.WarnContext(ctx, "no customer email for receipt", logger.Error(err))
		return
	}
	paid := p
	paid.Status = gateway.StatusPaid
	if err := s.notifier.PaymentReceived(ctx, Receipt{
		Email:    ref.Email,
		Name:     ref.Name,
		Payment:  paid,
		PlanName: sub.PlanName,
	}); err != nil {
		log.ErrorContext(ctx, "failed to send payment receipt", logger.Error(err))
	}
}

func (s *Service) finishEvent(ctx context.Context, log *slog.Logger, provider, eventID, outcome string, processedAt *time.Time) {
	if err := s.store.FinishWebhookEvent(ctx, provider, eventID, outcome, processedAt); err != nil {
		log.ErrorContext(ctx, "failed to record webhook outcome", logger.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
