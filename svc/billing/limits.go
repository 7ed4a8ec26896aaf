package billing

import (
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/biolink/handler"
	"github.com/dmitrymomot/biolink/pkg/catalog"
)

func (h *Handler) planLimits(ctx handler.Context, _ struct{}) handler.Response {
	id, err := userID(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}
	sum, err := h.limits.Summary(ctx.Request().Context(), id)
	if err != nil {
		return h.fail(ctx, err)
	}
	return handler.JSON(sum)
}

type checkLimitRequest struct {
	Resource catalog.Resource `query:"resource"`
}

func (h *Handler) checkLimit(ctx handler.Context, req checkLimitRequest) handler.Response {
	id, err := userID(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}
	check, err := h.limits.CheckLimit(ctx.Request().Context(), id, req.Resource)
	if err != nil {
		return h.fail(ctx, err)
	}
	return handler.JSON(check)
}

func (h *Handler) adminPlans(ctx handler.Context, _ struct{}) handler.Response {
	plans, err := h.catalog.All(ctx.Request().Context())
	if err != nil {
		return h.fail(ctx, err)
	}
	return handler.JSON(plans)
}

type replacePlansRequest struct {
	Plans []map[string]any `json:"plans"`
}

// adminReplacePlans swaps the whole catalog. Every plan is decoded with the
// same coercion rules as a single-plan update before anything is stored.
func (h *Handler) adminReplacePlans(ctx handler.Context, req replacePlansRequest) handler.Response {
	plans, err := catalog.DecodePlans(req.Plans)
	if err != nil {
		return h.fail(ctx, err)
	}
	if err := h.catalog.Replace(ctx.Request().Context(), plans); err != nil {
		return h.fail(ctx, err)
	}
	return h.adminPlans(ctx, struct{}{})
}

type updatePlanRequest map[string]any

// adminUpdatePlan applies a partial document to one plan; the whole
// result must validate or nothing is stored.
func (h *Handler) adminUpdatePlan(ctx handler.Context, req updatePlanRequest) handler.Response {
	planID := chi.URLParam(ctx.Request(), "planId")
	plan, err := h.catalog.Update(ctx.Request().Context(), planID, req)
	if err != nil {
		return h.fail(ctx, err)
	}
	return handler.JSON(plan)
}
