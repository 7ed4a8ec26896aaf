package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Gateway creates customers and charges at a processor and authenticates
// and decodes its webhook deliveries.
type Gateway interface {
	// Name is the provider key stored on customer refs and payments.
	Name() string

	// CreateCustomer registers the customer and returns the processor id.
	CreateCustomer(ctx context.Context, c Customer) (string, error)

	// CreateCharge creates a one-off charge. Failures are returned as
	// *ProcessorError carrying the processor's message.
	CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error)

	// VerifySignature checks a webhook body against its signature header
	// value. It returns ErrInvalidSignature on mismatch.
	VerifySignature(body []byte, signature string) error

	// ParseEvent decodes a webhook body into a normalized Event, or
	// returns ErrMalformedEvent.
	ParseEvent(body []byte) (Event, error)

	// SignatureHeaders lists the request headers that may carry the
	// webhook signature, in lookup order.
	SignatureHeaders() []string
}

// Customer is the billing identity sent to the processor.
type Customer struct {
	UserID uuid.UUID
	Name   string
	Email  string
	TaxID  string // CPF or CNPJ, digits only
	Phone  string // digits only
}

// ChargeRequest describes a single charge. Amount is in minor units and is
// always taken from the plan catalog.
type ChargeRequest struct {
	CustomerID  string
	Reference   string // local payment id, echoed back in webhooks
	PlanID      string
	PriceID     string // processor catalog price, for catalog-based processors
	Description string
	Amount      int64
	Currency    string
	Method      Method
	DueDate     time.Time
}

// Charge is the processor's answer to CreateCharge.
type Charge struct {
	TransactionID string
	Status        Status
	PaymentURL    string
	PixPayload    string // PIX copy-and-paste code
	PixExpiresAt  *time.Time
}

// Event is a webhook delivery normalized to the internal vocabulary.
type Event struct {
	// ID identifies the delivery for deduplication. Processors that do
	// not send one get a stable id derived from the event content.
	ID            string
	Kind          string
	TransactionID string
	Status        Status
	RawStatus     string
	Amount        *int64 // minor units, when the event carries a value
	Reference     string
	OccurredAt    time.Time
}
