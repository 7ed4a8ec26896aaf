package billing

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/biolink/handler"
	core "github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/limits"
	"github.com/dmitrymomot/biolink/pkg/validator"
)

var (
	ErrPlanNotFound       = handler.NewHTTPError(http.StatusNotFound, "plan_not_found")
	ErrPlanNotPurchasable = handler.NewHTTPError(http.StatusBadRequest, "plan_not_purchasable")
	ErrMethodNotSupported = handler.NewHTTPError(http.StatusBadRequest, "payment_method_not_supported")
	ErrInvalidPlan        = handler.NewHTTPError(http.StatusBadRequest, "invalid_plan")
	ErrPlanInUse          = handler.NewHTTPError(http.StatusConflict, "plan_in_use")
	ErrProcessor          = handler.NewHTTPError(http.StatusInternalServerError, "payment_processor_error")
)

// mapError translates domain errors into HTTP errors. Unknown errors are
// returned unchanged and render as a generic 500.
func mapError(err error) error {
	if ve := validator.ExtractValidationErrors(err); ve != nil {
		out := handler.NewValidationError()
		for _, e := range ve {
			out.Add(e.Field, e.Message)
		}
		return out
	}
	if pe, ok := gateway.IsProcessorError(err); ok {
		return ErrProcessor.WithMessage(pe.Error()).Wrap(err)
	}

	var httpErr handler.HTTPError
	var valErr handler.ValidationError
	switch {
	case errors.As(err, &httpErr), errors.As(err, &valErr):
		return err
	case errors.Is(err, core.ErrNotFound):
		return handler.ErrNotFound.Wrap(err)
	case errors.Is(err, core.ErrInvalidInput):
		return handler.ErrBadRequest.Wrap(err)
	case errors.Is(err, core.ErrPlanNotPurchasable):
		return ErrPlanNotPurchasable.Wrap(err)
	case errors.Is(err, catalog.ErrPlanNotFound), errors.Is(err, limits.ErrPlanNotFound):
		return ErrPlanNotFound.Wrap(err)
	case errors.Is(err, gateway.ErrMethodNotSupported):
		return ErrMethodNotSupported.Wrap(err)
	case errors.Is(err, gateway.ErrUnknownStatus), errors.Is(err, limits.ErrUnknownResource):
		return handler.ErrBadRequest.Wrap(err)
	case errors.Is(err, catalog.ErrInvalidPlan),
		errors.Is(err, catalog.ErrEmptyCatalog),
		errors.Is(err, catalog.ErrMissingFree):
		return ErrInvalidPlan.Wrap(err)
	case errors.Is(err, catalog.ErrPlanInUse):
		return ErrPlanInUse.Wrap(err)
	case errors.Is(err, catalog.ErrUpdateConflict):
		return handler.ErrConflict.Wrap(err)
	}
	return err
}
