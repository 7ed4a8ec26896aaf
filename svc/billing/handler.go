package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/handler"
	"github.com/dmitrymomot/biolink/pkg/auth"
	core "github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/binder"
	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/limits"
	"github.com/dmitrymomot/biolink/pkg/logger"
	"github.com/dmitrymomot/biolink/pkg/ratelimiter"
)

// MaxWebhookBody bounds processor webhook payloads.
const MaxWebhookBody = 1 << 20

// Handler serves the billing HTTP surface.
type Handler struct {
	billing *core.Service
	limits  *limits.Service
	catalog catalog.Catalog
	auth    *auth.Service
	log     *slog.Logger
	errs    handler.ErrorHandler[handler.Context]
	limiter *ratelimiter.Bucket
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithCheckoutLimiter throttles checkout per user.
func WithCheckoutLimiter(b *ratelimiter.Bucket) Option {
	return func(h *Handler) { h.limiter = b }
}

func New(b *core.Service, l *limits.Service, cat catalog.Catalog, a *auth.Service, opts ...Option) *Handler {
	if b == nil || l == nil || cat == nil || a == nil {
		panic("billing: nil dependency")
	}
	h := &Handler{
		billing: b,
		limits:  l,
		catalog: cat,
		auth:    a,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With(logger.Component("billing_http"))
	h.errs = handler.NewErrorHandler(h.log)
	return h
}

// Routes registers every billing route on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/webhook/{provider}", h.webhook)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.auth))

		r.With(h.throttle()).Post("/checkout", wrap(h, h.checkout, binder.JSON()))
		r.Get("/payments", wrap(h, h.payments, binder.Query()))
		r.Get("/payments/status", wrap(h, h.paymentStatus, binder.Query()))
		r.Post("/payments/cancel", wrap(h, h.cancel, binder.JSON()))
		r.Get("/user/plan-limits", wrap[struct{}](h, h.planLimits))
		r.Get("/user/plan-limits/check", wrap(h, h.checkLimit, binder.Query()))

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(h.auth))
			r.Get("/plan-limits", wrap[struct{}](h, h.adminPlans))
			r.Put("/plan-limits", wrap(h, h.adminReplacePlans, binder.JSON()))
			r.Put("/plan-limits/{planId}", wrap(h, h.adminUpdatePlan, binder.JSON()))
			r.Get("/payments", wrap(h, h.adminPayments, binder.Query()))
		})
	})
}

func (h *Handler) throttle() func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	byUser := func(r *http.Request) string {
		if id, ok := auth.UserIDFromRequest(r); ok {
			return "user:" + id.String()
		}
		return ""
	}
	return ratelimiter.Middleware(h.limiter, ratelimiter.FirstKey(byUser, ratelimiter.RemoteAddr), h.log)
}

func wrap[R any](h *Handler, fn handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(fn,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](h.errs),
	)
}

// fail logs err and renders it through the JSON envelope.
func (h *Handler) fail(ctx handler.Context, err error) handler.Response {
	mapped := mapError(err)
	r := ctx.Request()
	status := handler.StatusCode(mapped)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.log.LogAttrs(r.Context(), level, "request failed",
		logger.Error(err),
		slog.Int("status_code", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	return handler.JSONError(mapped)
}

func userID(ctx handler.Context) (uuid.UUID, error) {
	id, ok := auth.UserID(ctx.Request().Context())
	if !ok {
		return uuid.Nil, handler.ErrUnauthorized
	}
	return id, nil
}
