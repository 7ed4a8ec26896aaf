// Package gatewaytest provides a testify mock of gateway.Gateway with
// working signature and event helpers.
package gatewaytest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/webhook"
)

const (
	ProviderName    = "fake"
	HeaderSignature = "x-fake-signature"
)

var _ gateway.Gateway = (*Fake)(nil)

// Fake records CreateCustomer and CreateCharge calls through mock.Mock.
// Signatures are real HMACs under Secret, and events use the JSON shape
// produced by EventBody.
type Fake struct {
	mock.Mock
	Secret string
}

// New returns a Fake signing with secret.
func New(secret string) *Fake {
	return &Fake{Secret: secret}
}

func (f *Fake) Name() string { return ProviderName }

func (f *Fake) SignatureHeaders() []string { return []string{HeaderSignature} }

func (f *Fake) CreateCustomer(ctx context.Context, c gateway.Customer) (string, error) {
	args := f.Called(ctx, c)
	return args.String(0), args.Error(1)
}

func (f *Fake) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (gateway.Charge, error) {
	args := f.Called(ctx, req)
	charge, _ := args.Get(0).(gateway.Charge)
	return charge, args.Error(1)
}

func (f *Fake) VerifySignature(body []byte, signature string) error {
	if strings.TrimSpace(signature) == "" {
		return gateway.ErrMissingSignature
	}
	if err := webhook.Verify(f.Secret, body, signature); err != nil {
		return fmt.Errorf("%w: %w", gateway.ErrInvalidSignature, err)
	}
	return nil
}

// Sign returns the signature header value for body.
func (f *Fake) Sign(body []byte) string {
	sig, err := webhook.Sign(f.Secret, body)
	if err != nil {
		panic(err)
	}
	return sig
}

// EventPayload is the wire shape ParseEvent understands.
type EventPayload struct {
	ID            string `json:"id,omitempty"`
	Kind          string `json:"kind"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Amount        *int64 `json:"amount,omitempty"`
}

// EventBody encodes an event for HandleWebhook.
func EventBody(p EventPayload) []byte {
	b, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	return b
}

func (f *Fake) ParseEvent(body []byte) (gateway.Event, error) {
	var p EventPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return gateway.Event{}, fmt.Errorf("%w: %w", gateway.ErrMalformedEvent, err)
	}
	if p.Kind == "" || p.TransactionID == "" || p.Status == "" {
		return gateway.Event{}, fmt.Errorf("%w: kind, transactionId and status are required", gateway.ErrMalformedEvent)
	}

	status, err := gateway.ParseStatus(p.Status)
	if err != nil {
		status = gateway.StatusUnknown
	}
	id := p.ID
	if id == "" {
		id = p.Kind + ":" + p.TransactionID + ":" + p.Status
	}
	return gateway.Event{
		ID:            id,
		Kind:          p.Kind,
		TransactionID: p.TransactionID,
		Status:        status,
		RawStatus:     p.Status,
		Amount:        p.Amount,
	}, nil
}
