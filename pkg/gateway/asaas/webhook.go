package asaas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/webhook"
)

// Signature headers, in lookup order.
const (
	HeaderSignature    = "asaas-signature"
	HeaderSignatureAlt = "x-asaas-signature"
)

func (c *Client) SignatureHeaders() []string {
	return []string{HeaderSignature, HeaderSignatureAlt}
}

// VerifySignature checks the HMAC-SHA256 of body under the webhook secret.
func (c *Client) VerifySignature(body []byte, signature string) error {
	if strings.TrimSpace(signature) == "" {
		return gateway.ErrMissingSignature
	}
	// Without a configured secret no signature can be valid.
	if err := webhook.Verify(c.cfg.WebhookSecret, body, signature); err != nil {
		return fmt.Errorf("%w: %w", gateway.ErrInvalidSignature, err)
	}
	return nil
}

// Asaas webhook event kinds that decide the status on their own.
const (
	EventPaymentCreated        = "PAYMENT_CREATED"
	EventPaymentConfirmed      = "PAYMENT_CONFIRMED"
	EventPaymentReceived       = "PAYMENT_RECEIVED"
	EventPaymentOverdue        = "PAYMENT_OVERDUE"
	EventPaymentDeleted        = "PAYMENT_DELETED"
	EventPaymentRefunded       = "PAYMENT_REFUNDED"
	EventPaymentCaptureRefused = "PAYMENT_CREDIT_CARD_CAPTURE_REFUSED"
	EventPaymentRiskRejected   = "PAYMENT_REPROVED_BY_RISK_ANALYSIS"
)

type webhookEvent struct {
	ID          string          `json:"id"`
	Event       string          `json:"event"`
	DateCreated string          `json:"dateCreated"`
	Payment     *webhookPayment `json:"payment"`
}

type webhookPayment struct {
	ID                string       `json:"id"`
	Status            string       `json:"status"`
	Value             *json.Number `json:"value"`
	ExternalReference string       `json:"externalReference"`
}

// ParseEvent decodes an Asaas webhook body. The event kind, the payment
// object, its id and its status are required. Extra fields are ignored.
func (c *Client) ParseEvent(body []byte) (gateway.Event, error) {
	var raw webhookEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return gateway.Event{}, fmt.Errorf("%w: %w", gateway.ErrMalformedEvent, err)
	}

	var missing []string
	if strings.TrimSpace(raw.Event) == "" {
		missing = append(missing, "event")
	}
	if raw.Payment == nil {
		missing = append(missing, "payment")
	} else {
		if strings.TrimSpace(raw.Payment.ID) == "" {
			missing = append(missing, "payment.id")
		}
		if strings.TrimSpace(raw.Payment.Status) == "" {
			missing = append(missing, "payment.status")
		}
	}
	if len(missing) > 0 {
		return gateway.Event{}, fmt.Errorf("%w: missing %s", gateway.ErrMalformedEvent, strings.Join(missing, ", "))
	}

	ev := gateway.Event{
		ID:            raw.ID,
		Kind:          raw.Event,
		TransactionID: raw.Payment.ID,
		RawStatus:     raw.Payment.Status,
		Status:        MapEvent(raw.Event, raw.Payment.Status),
		Reference:     raw.Payment.ExternalReference,
	}
	if ev.ID == "" {
		ev.ID = derivedID(raw.Event, raw.Payment.ID, raw.Payment.Status)
	}
	if raw.Payment.Value != nil {
		cents, err := ParseValue(*raw.Payment.Value)
		if err != nil {
			return gateway.Event{}, fmt.Errorf("%w: payment.value: %w", gateway.ErrMalformedEvent, err)
		}
		ev.Amount = &cents
	}
	if t, err := time.ParseInLocation(time.DateTime, raw.DateCreated, saoPaulo()); err == nil {
		ev.OccurredAt = t
	}
	return ev, nil
}

// derivedID is a stable delivery id for events sent without one, so the
// same notification redelivered maps to the same id.
func derivedID(kind, paymentID, status string) string {
	sum := sha256.Sum256([]byte(kind + "|" + paymentID + "|" + status))
	return "derived_" + hex.EncodeToString(sum[:12])
}

// MapEvent normalizes an event. Kinds that carry their own meaning win over
// the payment status field.
func MapEvent(kind, status string) gateway.Status {
	switch strings.ToUpper(kind) {
	case EventPaymentDeleted:
		return gateway.StatusCanceled
	case EventPaymentRefunded:
		return gateway.StatusRefunded
	case EventPaymentOverdue, EventPaymentCaptureRefused, EventPaymentRiskRejected:
		return gateway.StatusFailed
	case EventPaymentConfirmed, EventPaymentReceived:
		return gateway.StatusPaid
	}
	return MapStatus(status)
}

// MapStatus normalizes an Asaas payment status.
func MapStatus(status string) gateway.Status {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PENDING", "AWAITING_RISK_ANALYSIS":
		return gateway.StatusPending
	case "CONFIRMED", "RECEIVED", "RECEIVED_IN_CASH":
		return gateway.StatusPaid
	case "OVERDUE":
		return gateway.StatusFailed
	case "REFUNDED":
		return gateway.StatusRefunded
	case "DELETED":
		return gateway.StatusCanceled
	}
	return gateway.StatusUnknown
}
