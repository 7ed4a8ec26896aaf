package asaas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/logger"
)

const dateLayout = "2006-01-02"

type paymentRequest struct {
	Customer          string      `json:"customer"`
	BillingType       string      `json:"billingType"`
	Value             json.Number `json:"value"`
	DueDate           string      `json:"dueDate"`
	Description       string      `json:"description,omitempty"`
	ExternalReference string      `json:"externalReference,omitempty"`
}

type paymentResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	InvoiceURL string `json:"invoiceUrl"`
}

type pixQRCodeResponse struct {
	EncodedImage   string `json:"encodedImage"`
	Payload        string `json:"payload"`
	ExpirationDate string `json:"expirationDate"`
}

// CreateCharge creates an Asaas payment. PIX charges also fetch the
// copy-and-paste payload; a failure there is logged and the charge is
// still returned since the invoice URL can show the code.
func (c *Client) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (gateway.Charge, error) {
	if !req.Method.Valid() {
		return gateway.Charge{}, fmt.Errorf("%w: %s", gateway.ErrMethodNotSupported, req.Method)
	}
	if req.CustomerID == "" || req.Amount <= 0 {
		return gateway.Charge{}, fmt.Errorf("%w: customer and positive amount are required", gateway.ErrInvalidRequest)
	}

	due := req.DueDate
	if due.IsZero() {
		due = c.now().AddDate(0, 0, c.cfg.DueDays)
	}

	var out paymentResponse
	err := c.do(ctx, "create_charge", http.MethodPost, "/payments", paymentRequest{
		Customer:          req.CustomerID,
		BillingType:       string(req.Method),
		Value:             json.Number(FormatValue(req.Amount)),
		DueDate:           due.Format(dateLayout),
		Description:       req.Description,
		ExternalReference: req.Reference,
	}, &out)
	if err != nil {
		return gateway.Charge{}, err
	}
	if out.ID == "" {
		return gateway.Charge{}, &gateway.ProcessorError{
			Provider:  ProviderName,
			Operation: "create_charge",
			Message:   "payment processor returned no payment id",
		}
	}

	charge := gateway.Charge{
		TransactionID: out.ID,
		Status:        MapStatus(out.Status),
		PaymentURL:    out.InvoiceURL,
	}
	if charge.Status == gateway.StatusUnknown {
		charge.Status = gateway.StatusPending
	}

	if req.Method == gateway.MethodPIX {
		var qr pixQRCodeResponse
		path := "/payments/" + url.PathEscape(out.ID) + "/pixQrCode"
		if err := c.do(ctx, "pix_qrcode", http.MethodGet, path, nil, &qr); err != nil {
			c.log.WarnContext(ctx, "failed to fetch pix payload",
				logger.Provider(ProviderName),
				logger.TransactionID(out.ID),
				logger.Error(err),
			)
			return charge, nil
		}
		charge.PixPayload = qr.Payload
		if t, err := time.ParseInLocation(time.DateTime, qr.ExpirationDate, saoPaulo()); err == nil {
			charge.PixExpiresAt = &t
		}
	}
	return charge, nil
}

// FormatValue renders minor units as the decimal Asaas expects: 1990 -> "19.90".
func FormatValue(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseValue converts an Asaas decimal value to minor units. Values with
// more than two decimal places are rejected.
func ParseValue(v json.Number) (int64, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", v, err)
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("invalid value %q: more than two decimal places", v)
	}
	return cents.IntPart(), nil
}

func saoPaulo() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}
