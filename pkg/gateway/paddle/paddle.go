// Package paddle implements gateway.Gateway on Paddle Billing through the
// official SDK. Charges are Paddle transactions against catalog prices, so
// every purchasable plan needs a "paddle" entry in providerPriceIds.
package paddle

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	paddlesdk "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/biolink/pkg/gateway"
)

// ProviderName is the provider key stored with customer refs and payments.
const ProviderName = "paddle"

// HeaderSignature carries Paddle's "ts=...;h1=..." webhook signature.
const HeaderSignature = "Paddle-Signature"

var _ gateway.Gateway = (*Gateway)(nil)

// Gateway adapts the Paddle SDK.
type Gateway struct {
	client   *paddlesdk.SDK
	verifier *paddlesdk.WebhookVerifier
}

// New creates a Paddle gateway.
func New(cfg Config) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: paddle api key is required", gateway.ErrInvalidRequest)
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: paddle webhook secret is required", gateway.ErrInvalidRequest)
	}

	var (
		client *paddlesdk.SDK
		err    error
	)
	if cfg.Sandbox {
		client, err = paddlesdk.NewSandbox(cfg.APIKey)
	} else {
		client, err = paddlesdk.New(cfg.APIKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &Gateway{
		client:   client,
		verifier: paddlesdk.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

func (g *Gateway) Name() string { return ProviderName }

func (g *Gateway) SignatureHeaders() []string { return []string{HeaderSignature} }

// CreateCustomer creates a Paddle customer keyed by email.
func (g *Gateway) CreateCustomer(ctx context.Context, c gateway.Customer) (string, error) {
	if c.Email == "" {
		return "", fmt.Errorf("%w: paddle customers require an email", gateway.ErrInvalidRequest)
	}

	req := &paddlesdk.CreateCustomerRequest{
		Email: c.Email,
		CustomData: paddlesdk.CustomData{
			"user_id": c.UserID.String(),
		},
	}
	if c.Name != "" {
		req.Name = paddlesdk.PtrTo(c.Name)
	}

	customer, err := g.client.CustomersClient.CreateCustomer(ctx, req)
	if err != nil {
		return "", processorError("create_customer", err)
	}
	return customer.ID, nil
}

// CreateCharge creates a transaction for the plan's Paddle price. Paddle
// has no PIX support.
func (g *Gateway) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (gateway.Charge, error) {
	if req.Method != gateway.MethodCreditCard {
		return gateway.Charge{}, fmt.Errorf("%w: paddle accepts %s only, got %s",
			gateway.ErrMethodNotSupported, gateway.MethodCreditCard, req.Method)
	}
	if req.PriceID == "" {
		return gateway.Charge{}, fmt.Errorf("%w: plan %q has no paddle price id", gateway.ErrInvalidRequest, req.PlanID)
	}
	if req.CustomerID == "" {
		return gateway.Charge{}, fmt.Errorf("%w: customer id is required", gateway.ErrInvalidRequest)
	}

	item := paddlesdk.NewCreateTransactionItemsTransactionItemFromCatalog(&paddlesdk.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	txn, err := g.client.TransactionsClient.CreateTransaction(ctx, &paddlesdk.CreateTransactionRequest{
		Items:      []paddlesdk.CreateTransactionItems{*item},
		CustomerID: paddlesdk.PtrTo(req.CustomerID),
		CustomData: paddlesdk.CustomData{
			"payment_id": req.Reference,
			"plan_id":    req.PlanID,
		},
	})
	if err != nil {
		return gateway.Charge{}, processorError("create_charge", err)
	}

	charge := gateway.Charge{
		TransactionID: txn.ID,
		Status:        MapTransactionStatus(string(txn.Status)),
	}
	if txn.Checkout != nil && txn.Checkout.URL != nil {
		charge.PaymentURL = *txn.Checkout.URL
	}
	if charge.PaymentURL == "" {
		return gateway.Charge{}, &gateway.ProcessorError{
			Provider:  ProviderName,
			Operation: "create_charge",
			Message:   "no checkout URL returned from paddle",
		}
	}
	if charge.Status == gateway.StatusUnknown {
		charge.Status = gateway.StatusPending
	}
	return charge, nil
}

// VerifySignature checks a Paddle-Signature header against body.
func (g *Gateway) VerifySignature(body []byte, signature string) error {
	if signature == "" {
		return gateway.ErrMissingSignature
	}

	req, err := http.NewRequest(http.MethodPost, "/webhook/paddle", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", gateway.ErrInvalidSignature, err)
	}
	req.Header.Set(HeaderSignature, signature)

	ok, err := g.verifier.Verify(req)
	if err != nil {
		return fmt.Errorf("%w: %w", gateway.ErrInvalidSignature, err)
	}
	if !ok {
		return gateway.ErrInvalidSignature
	}
	return nil
}

func processorError(op string, err error) *gateway.ProcessorError {
	return &gateway.ProcessorError{Provider: ProviderName, Operation: op, Message: err.Error(), Err: err}
}
