package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/biolink/handler"
	core "github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/logger"
)

// webhook answers 401 for a bad signature and 400 for an unreadable body.
// Everything else is acknowledged with 200 so the processor stops
// retrying; anomalies are reported by the billing service.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	gw, ok := h.billing.Gateway(provider)
	if !ok {
		_ = handler.JSONError(handler.ErrNotFound).Render(w, r)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBody))
	if err != nil {
		h.log.WarnContext(r.Context(), "webhook body unreadable",
			logger.Provider(provider),
			logger.Error(err),
		)
		_ = handler.JSONError(handler.ErrBadRequest.Wrap(core.ErrMalformedEvent)).Render(w, r)
		return
	}

	var signature string
	for _, name := range gw.SignatureHeaders() {
		if signature = r.Header.Get(name); signature != "" {
			break
		}
	}

	res, err := h.billing.HandleProviderWebhook(r.Context(), provider, body, signature)
	switch {
	case errors.Is(err, core.ErrInvalidSignature):
		_ = handler.JSONError(handler.ErrUnauthorized.WithMessage("invalid webhook signature")).Render(w, r)
	case errors.Is(err, core.ErrMalformedEvent):
		_ = handler.JSONError(handler.ErrBadRequest.WithMessage("malformed webhook event")).Render(w, r)
	case errors.Is(err, core.ErrUnknownGateway):
		_ = handler.JSONError(handler.ErrNotFound).Render(w, r)
	case err != nil:
		h.log.ErrorContext(r.Context(), "webhook failed",
			logger.Provider(provider),
			logger.Error(err),
		)
		_ = handler.JSON(res).Render(w, r)
	default:
		_ = handler.JSON(res).Render(w, r)
	}
}
