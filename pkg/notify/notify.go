// Package notify renders billing emails and hands them to an email.Sender.
package notify

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/email"
	"github.com/dmitrymomot/biolink/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var ErrRender = errors.New("notify: failed to render email")

var _ billing.Notifier = (*Mailer)(nil)

// Mailer sends payment receipts to customers and webhook alerts to
// operators.
type Mailer struct {
	sender    email.Sender
	operators string
	lang      language.Tag
	loc       *time.Location
	log       *slog.Logger
}

type Option func(*Mailer)

func WithLogger(l *slog.Logger) Option {
	return func(m *Mailer) {
		if l != nil {
			m.log = l
		}
	}
}

// WithLocale sets the language for amounts and the zone for timestamps.
func WithLocale(tag language.Tag, loc *time.Location) Option {
	return func(m *Mailer) {
		m.lang = tag
		if loc != nil {
			m.loc = loc
		}
	}
}

// New returns a Mailer. Alerts are dropped when operators is empty.
func New(sender email.Sender, operators string, opts ...Option) *Mailer {
	m := &Mailer{
		sender:    sender,
		operators: operators,
		lang:      language.BrazilianPortuguese,
		loc:       time.UTC,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type receiptData struct {
	Name          string
	PlanName      string
	Amount        string
	PaymentID     string
	TransactionID string
	Method        string
	ProcessedAt   string
}

func (m *Mailer) PaymentReceived(ctx context.Context, r billing.Receipt) error {
	data := receiptData{
		Name:          r.Name,
		PlanName:      r.PlanName,
		Amount:        catalog.FormatPrice(catalog.Price{Amount: r.Payment.Amount, Currency: r.Payment.Currency}, m.lang),
		PaymentID:     r.Payment.ID.String(),
		TransactionID: r.Payment.TransactionID,
		Method:        methodLabel(string(r.Payment.Method)),
	}
	if r.Payment.ProcessedAt != nil {
		data.ProcessedAt = r.Payment.ProcessedAt.In(m.loc).Format("02/01/2006 15:04")
	}

	body, err := Render(ctx, view("receipt.html", data))
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, email.Message{
		To:       r.Email,
		Subject:  fmt.Sprintf("Pagamento confirmado: plano %s", r.PlanName),
		HTMLBody: body,
		Tag:      "payment-receipt",
	})
}

type alertData struct {
	Reason        string
	Provider      string
	EventID       string
	TransactionID string
	Error         string
}

func (m *Mailer) OperatorAlert(ctx context.Context, a billing.Alert) error {
	if m.operators == "" {
		m.log.DebugContext(ctx, "operator alert dropped, no recipient configured", logger.Reason(a.Reason))
		return nil
	}
	data := alertData{
		Reason:        a.Reason,
		Provider:      a.Provider,
		EventID:       a.EventID,
		TransactionID: a.TransactionID,
	}
	if a.Err != nil {
		data.Error = a.Err.Error()
	}

	body, err := Render(ctx, view("alert.html", data))
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, email.Message{
		To:       m.operators,
		Subject:  fmt.Sprintf("[billing] %s webhook %s", a.Provider, a.Reason),
		HTMLBody: body,
		Tag:      "billing-alert",
	})
}

func methodLabel(method string) string {
	switch method {
	case "PIX":
		return "PIX"
	case "CREDIT_CARD":
		return "Cartão de crédito"
	}
	return method
}
