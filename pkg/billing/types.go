package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/pkg/gateway"
)

// SubscriptionStatus is the entitlement state of a user's subscription row.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionTrial    SubscriptionStatus = "trial"
)

// Entitled reports whether the status grants the subscription's plan.
func (s SubscriptionStatus) Entitled() bool {
	return s == SubscriptionActive || s == SubscriptionTrial
}

// CustomerRef maps a user to their customer record at a processor. A user
// has at most one ref per provider.
type CustomerRef struct {
	UserID     uuid.UUID `json:"userId"`
	Provider   string    `json:"provider"`
	ExternalID string    `json:"externalId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	TaxID      string    `json:"taxId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Payment is one processor charge attempt and its outcome.
type Payment struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"userId"`
	SubscriptionID *uuid.UUID     `json:"subscriptionId,omitempty"`
	PlanID         string         `json:"planId"`
	Amount         int64          `json:"amount"`
	Currency       string         `json:"currency"`
	Method         gateway.Method `json:"paymentMethod"`
	Provider       string         `json:"provider"`
	TransactionID  string         `json:"transactionId"`
	Status         gateway.Status `json:"status"`
	PaymentURL     string         `json:"paymentUrl,omitempty"`
	PixPayload     string         `json:"pixPayload,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	ProcessedAt    *time.Time     `json:"processedAt,omitempty"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Subscription is the plan a user currently holds. There is one row per user.
type Subscription struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"userId"`
	PlanID    string             `json:"planId"`
	PlanName  string             `json:"planName"`
	Status    SubscriptionStatus `json:"status"`
	StartDate time.Time          `json:"startDate"`
	EndDate   *time.Time         `json:"endDate,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Live reports whether the subscription entitles its plan at now.
func (s Subscription) Live(now time.Time) bool {
	if !s.Status.Entitled() {
		return false
	}
	return s.EndDate == nil || s.EndDate.After(now)
}

// Webhook delivery outcomes recorded in the event log.
const (
	OutcomeReceived       = "received"
	OutcomeApplied        = "applied"
	OutcomeIgnored        = "ignored"
	OutcomeUnknownPayment = "unknown_payment"
	OutcomeError          = "error"
)

// WebhookEvent is one entry of the webhook delivery log, keyed by
// (Provider, EventID).
type WebhookEvent struct {
	Provider      string     `json:"provider"`
	EventID       string     `json:"eventId"`
	Kind          string     `json:"kind"`
	TransactionID string     `json:"transactionId"`
	Status        string     `json:"status"`
	Verified      bool       `json:"verified"`
	Payload       []byte     `json:"-"`
	Outcome       string     `json:"outcome"`
	ReceivedAt    time.Time  `json:"receivedAt"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
}

// Processed reports whether the delivery reached a final outcome. Deliveries
// that failed internally stay unprocessed so a redelivery can retry them.
func (e WebhookEvent) Processed() bool {
	return e.ProcessedAt != nil
}

// PaymentFilter narrows the sales report. Zero values match everything.
type PaymentFilter struct {
	Status gateway.Status `query:"status"`
	From   time.Time      `query:"from"`
	To     time.Time      `query:"to"`
	Limit  int            `query:"limit"`
}
