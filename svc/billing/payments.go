package billing

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/handler"
	core "github.com/dmitrymomot/biolink/pkg/billing"
)

func (h *Handler) checkout(ctx handler.Context, req core.CheckoutInput) handler.Response {
	id, err := userID(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}
	req.UserID = id

	resp, err := h.billing.Checkout(ctx.Request().Context(), req)
	if err != nil {
		return h.fail(ctx, err)
	}
	return handler.JSON(resp, handler.WithJSONStatus(http.StatusCreated))
}

type paymentStatusRequest struct {
	PaymentID uuid.UUID `query:"paymentId"`
}

func (h *Handler) paymentStatus(ctx handler.Context, req paymentStatusRequest) handler.Response {
	id, err := userID(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}
	if req.PaymentID == uuid.Nil {
		verr := handler.NewValidationError()
		verr.Add("paymentId", "is required")
		return h.fail(ctx, verr)
	}

	resp, err := h.billing.GetPayment(ctx.Request().Context(), id, req.PaymentID)
	if err != nil {
		return h.fail(ctx, err)
	}
	return handler.JSON(resp)
}

type historyRequest struct {
	Limit int `query:"limit"`
}

func (h *Handler) payments(ctx handler.Context, req historyRequest) handler.Response {
	id, err := userID(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}
	list, err := h.billing.ListPayments(ctx.Request().Context(), id, req.Limit)
	if err != nil {
		return h.fail(ctx, err)
	}
	return handler.JSON(list)
}

type cancelRequest struct {
	SubscriptionID *uuid.UUID `json:"subscriptionId"`
}

func (h *Handler) cancel(ctx handler.Context, req cancelRequest) handler.Response {
	id, err := userID(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}
	subID := uuid.Nil
	if req.SubscriptionID != nil {
		subID = *req.SubscriptionID
	}

	ok, err := h.billing.Cancel(ctx.Request().Context(), id, subID)
	if err != nil {
		return h.fail(ctx, err)
	}
	if !ok {
		return handler.Message("No active subscription to cancel", handler.WithJSONSuccess(false))
	}
	return handler.Message("Subscription canceled")
}

func (h *Handler) adminPayments(ctx handler.Context, req core.PaymentFilter) handler.Response {
	report, err := h.billing.SalesReport(ctx.Request().Context(), req)
	if err != nil {
		return h.fail(ctx, err)
	}
	return handler.JSON(report)
}
