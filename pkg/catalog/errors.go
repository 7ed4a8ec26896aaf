package catalog

import "errors"

var (
	ErrPlanNotFound   = errors.New("plan not found")
	ErrInvalidPlan    = errors.New("invalid plan")
	ErrEmptyCatalog   = errors.New("catalog must contain at least one plan")
	ErrMissingFree    = errors.New("catalog must contain the free plan")
	ErrPlanInUse      = errors.New("plan is referenced by an active subscription")
	ErrCatalogLoad    = errors.New("failed to load plan catalog")
	ErrCatalogStore   = errors.New("failed to store plan catalog")
	ErrUpdateConflict = errors.New("catalog changed concurrently, retry the update")
)
