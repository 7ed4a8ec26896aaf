package limits

import "errors"

var (
	ErrPlanNotFound               = errors.New("limits.errors.plan_not_found")
	ErrUnknownResource            = errors.New("limits.errors.unknown_resource")
	ErrUnknownFeature             = errors.New("limits.errors.unknown_feature")
	ErrLimitExceeded              = errors.New("limits.errors.limit_exceeded")
	ErrFeatureUnavailable         = errors.New("limits.errors.feature_unavailable")
	ErrNoCounterRegistered        = errors.New("limits.errors.no_counter_registered")
	ErrFailedToCountResourceUsage = errors.New("limits.errors.failed_to_count_resource_usage")
	ErrFailedToResolvePlan        = errors.New("limits.errors.failed_to_resolve_plan")
)
