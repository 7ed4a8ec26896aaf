package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/logger"
	"github.com/dmitrymomot/biolink/pkg/qrcode"
	"github.com/dmitrymomot/biolink/pkg/validator"
)

// CustomerData is the billing identity entered at checkout.
type CustomerData struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email,max=254"`
	TaxID string `json:"cpfCnpj" validate:"required,cpfcnpj"`
	Phone string `json:"phone" validate:"required,phone"`
}

func (c CustomerData) normalized() CustomerData {
	return CustomerData{
		Name:  validator.NormalizeName(c.Name),
		Email: validator.NormalizeEmail(c.Email),
		TaxID: validator.NormalizeTaxID(c.TaxID),
		Phone: validator.NormalizePhone(c.Phone),
	}
}

// CheckoutInput is a request to buy one billing period of a plan.
type CheckoutInput struct {
	UserID   uuid.UUID      `json:"-"`
	PlanID   string         `json:"planId" validate:"required,max=64"`
	Method   gateway.Method `json:"paymentMethod" validate:"required,oneof=PIX CREDIT_CARD"`
	Customer CustomerData   `json:"customerData"`

	// Amount is accepted for compatibility with older clients and never
	// charged. The price always comes from the catalog.
	Amount *float64 `json:"amount,omitempty"`
}

// PaymentResponse is the client view of a payment.
type PaymentResponse struct {
	ID            uuid.UUID      `json:"id"`
	Status        gateway.Status `json:"status"`
	PlanID        string         `json:"planId"`
	Amount        int64          `json:"amount"`
	Currency      string         `json:"currency"`
	Method        gateway.Method `json:"paymentMethod"`
	PaymentURL    string         `json:"paymentUrl,omitempty"`
	PixQRCode     string         `json:"pixQrCode,omitempty"`
	PixCopyPaste  string         `json:"pixCopyPaste,omitempty"`
	TransactionID string         `json:"transactionId"`
	CreatedAt     time.Time      `json:"createdAt"`
	ProcessedAt   *time.Time     `json:"processedAt,omitempty"`
}

// Checkout creates a processor charge for the plan's catalog price and
// records it as a pending payment. Nothing is stored when the processor
// rejects the charge.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (PaymentResponse, error) {
	if in.UserID == uuid.Nil {
		return PaymentResponse{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	in.Customer = in.Customer.normalized()
	if err := s.validate.Struct(in); err != nil {
		return PaymentResponse{}, err
	}

	plan, err := s.catalog.Get(ctx, in.PlanID)
	if err != nil {
		return PaymentResponse{}, err
	}
	if !plan.Purchasable() {
		return PaymentResponse{}, fmt.Errorf("%w: %s", ErrPlanNotPurchasable, plan.ID)
	}
	s.checkClientAmount(ctx, in, plan)

	gw := s.primary
	ref, err := s.customerRef(ctx, gw, in.UserID, in.Customer)
	if err != nil {
		return PaymentResponse{}, err
	}

	now := s.now()
	paymentID := uuid.New()
	charge, err := gw.CreateCharge(ctx, gateway.ChargeRequest{
		CustomerID:  ref.ExternalID,
		Reference:   paymentID.String(),
		PlanID:      plan.ID,
		PriceID:     plan.PriceID(gw.Name()),
		Description: fmt.Sprintf("%s plan, monthly", plan.Name),
		Amount:      plan.Price.Amount,
		Currency:    plan.Price.Currency,
		Method:      in.Method,
	})
	if err != nil {
		s.log.WarnContext(ctx, "charge rejected by processor",
			logger.UserID(in.UserID),
			logger.PlanID(plan.ID),
			logger.Provider(gw.Name()),
			logger.Error(err),
		)
		return PaymentResponse{}, errors.Join(ErrFailedToCreateCharge, err)
	}

	p := Payment{
		ID:            paymentID,
		UserID:        in.UserID,
		PlanID:        plan.ID,
		Amount:        plan.Price.Amount,
		Currency:      plan.Price.Currency,
		Method:        in.Method,
		Provider:      gw.Name(),
		TransactionID: charge.TransactionID,
		Status:        gateway.StatusPending,
		PaymentURL:    charge.PaymentURL,
		PixPayload:    charge.PixPayload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		// The charge exists at the processor but not here; its webhooks
		// will be logged as unknown payments.
		s.log.ErrorContext(ctx, "failed to persist payment after charge",
			logger.UserID(in.UserID),
			logger.PaymentID(p.ID),
			logger.TransactionID(charge.TransactionID),
			logger.Error(err),
		)
		return PaymentResponse{}, errors.Join(ErrFailedToPersist, err)
	}

	s.log.InfoContext(ctx, "checkout created",
		logger.Event("checkout_created"),
		logger.UserID(in.UserID),
		logger.PaymentID(p.ID),
		logger.PlanID(plan.ID),
		logger.TransactionID(p.TransactionID),
		slog.String("method", string(p.Method)),
	)
	return s.response(ctx, p), nil
}

// customerRef returns the user's processor customer, creating it once.
// Concurrent first checkouts may both reach the processor; the loser of
// the insert race adopts the stored ref.
func (s *Service) customerRef(ctx context.Context, gw gateway.Gateway, userID uuid.UUID, c CustomerData) (CustomerRef, error) {
	ref, err := s.store.GetCustomerRef(ctx, userID, gw.Name())
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return CustomerRef{}, fmt.Errorf("load customer ref: %w", err)
	}

	externalID, err := gw.CreateCustomer(ctx, gateway.Customer{
		UserID: userID,
		Name:   c.Name,
		Email:  c.Email,
		TaxID:  c.TaxID,
		Phone:  c.Phone,
	})
	if err != nil {
		return CustomerRef{}, errors.Join(ErrFailedToCreateCustomer, err)
	}

	ref = CustomerRef{
		UserID:     userID,
		Provider:   gw.Name(),
		ExternalID: externalID,
		Name:       c.Name,
		Email:      c.Email,
		TaxID:      c.TaxID,
		CreatedAt:  s.now(),
	}
	err = s.store.CreateCustomerRef(ctx, ref)
	if errors.Is(err, ErrDuplicate) {
		existing, gerr := s.store.GetCustomerRef(ctx, userID, gw.Name())
		if gerr != nil {
			return CustomerRef{}, fmt.Errorf("reload customer ref: %w", gerr)
		}
		s.log.WarnContext(ctx, "concurrent customer creation, reusing stored customer",
			logger.UserID(userID),
			logger.Provider(gw.Name()),
			slog.String("orphan_customer_id", externalID),
		)
		return existing, nil
	}
	if err != nil {
		return CustomerRef{}, errors.Join(ErrFailedToPersist, err)
	}
	return ref, nil
}

func (s *Service) checkClientAmount(ctx context.Context, in CheckoutInput, plan catalog.Plan) {
	if in.Amount == nil {
		return
	}
	client := decimal.NewFromFloat(*in.Amount)
	price := decimal.New(plan.Price.Amount, -2)
	if client.Equal(price) {
		return
	}
	s.log.WarnContext(ctx, "client amount differs from catalog price, charging catalog price",
		logger.Event("price_tampering"),
		logger.UserID(in.UserID),
		logger.PlanID(plan.ID),
		slog.String("client_amount", client.StringFixed(2)),
		slog.String("catalog_amount", price.StringFixed(2)),
	)
}

// response renders p for the client. The PIX QR code is only rendered
// while the payment can still be paid.
func (s *Service) response(ctx context.Context, p Payment) PaymentResponse {
	r := PaymentResponse{
		ID:            p.ID,
		Status:        p.Status,
		PlanID:        p.PlanID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Method:        p.Method,
		PaymentURL:    p.PaymentURL,
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt,
		ProcessedAt:   p.ProcessedAt,
	}
	if p.PixPayload == "" || p.Status != gateway.StatusPending {
		return r
	}
	r.PixCopyPaste = p.PixPayload
	uri, err := qrcode.DataURI(p.PixPayload, qrcode.DefaultSize)
	if err != nil {
		s.log.WarnContext(ctx, "failed to render pix qr code", logger.PaymentID(p.ID), logger.Error(err))
		return r
	}
	r.PixQRCode = uri
	return r
}
