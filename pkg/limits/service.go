package limits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/logger"
)

// PlanResolver returns the plan id of the user's active subscription, or ""
// when the user has none.
type PlanResolver interface {
	ActivePlanID(ctx context.Context, userID uuid.UUID) (string, error)
}

// PlanResolverFunc adapts a function to PlanResolver.
type PlanResolverFunc func(ctx context.Context, userID uuid.UUID) (string, error)

func (f PlanResolverFunc) ActivePlanID(ctx context.Context, userID uuid.UUID) (string, error) {
	return f(ctx, userID)
}

// Service evaluates plan limits and feature flags for a user.
//
// Usage is re-read on every call, but the check and the caller's subsequent
// insert are not atomic: concurrent creates from one user can each pass and
// overshoot the limit by the number of requests in flight.
type Service struct {
	catalog  catalog.Catalog
	counters CounterRegistry
	plans    PlanResolver
	log      *slog.Logger
	lang     language.Tag
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLanguage sets the locale used to format prices in upgrade messages.
func WithLanguage(tag language.Tag) Option {
	return func(s *Service) { s.lang = tag }
}

func NewService(cat catalog.Catalog, counters CounterRegistry, plans PlanResolver, opts ...Option) *Service {
	if counters == nil {
		counters = NewRegistry()
	}
	s := &Service{
		catalog:  cat,
		counters: counters,
		plans:    plans,
		log:      logger.Discard(),
		lang:     language.BrazilianPortuguese,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const planUnavailable = "Your plan is unavailable. Please contact support."

// CheckLimit decides whether the user may create one more res.
// A plan missing from the catalog fails closed: the check is denied.
func (s *Service) CheckLimit(ctx context.Context, userID uuid.UUID, res catalog.Resource) (Check, error) {
	if !res.Valid() {
		return Check{}, fmt.Errorf("%w: %q", ErrUnknownResource, res)
	}

	plan, plans, err := s.currentPlan(ctx, userID)
	if errors.Is(err, ErrPlanNotFound) {
		return Check{
			Resource: res,
			Message:  planUnavailable,
		}, nil
	}
	if err != nil {
		return Check{}, err
	}

	current, err := s.counters.Count(ctx, userID, res)
	if err != nil {
		return Check{}, err
	}
	return s.evaluate(plan, plans, res, current), nil
}

// CanCreate is CheckLimit reduced to an error: ErrLimitExceeded on deny.
func (s *Service) CanCreate(ctx context.Context, userID uuid.UUID, res catalog.Resource) error {
	check, err := s.CheckLimit(ctx, userID, res)
	if err != nil {
		return err
	}
	if !check.Allowed {
		return fmt.Errorf("%w: %s", ErrLimitExceeded, check.Message)
	}
	return nil
}

// CheckFeature reports whether the user's plan enables f. Fails closed.
func (s *Service) CheckFeature(ctx context.Context, userID uuid.UUID, f catalog.Feature) (FeatureCheck, error) {
	if !f.Valid() {
		return FeatureCheck{}, fmt.Errorf("%w: %q", ErrUnknownFeature, f)
	}

	plan, plans, err := s.currentPlan(ctx, userID)
	if errors.Is(err, ErrPlanNotFound) {
		return FeatureCheck{Feature: f, Message: planUnavailable}, nil
	}
	if err != nil {
		return FeatureCheck{}, err
	}

	check := FeatureCheck{Feature: f, Allowed: plan.HasFeature(f)}
	if check.Allowed {
		return check, nil
	}
	check.UpgradeRequired = true
	if next, ok := catalog.UpgradeForFeature(plans, plan, f); ok {
		check.UpgradeTo = next.ID
		check.Message = fmt.Sprintf("%s is not included in your plan. Upgrade to %s (%s/month) to unlock it.",
			featureLabel(f), next.Name, catalog.FormatPrice(next.Price, s.lang))
	} else {
		check.Message = fmt.Sprintf("%s is not available. Please contact support.", featureLabel(f))
	}
	return check, nil
}

// HasFeature is CheckFeature reduced to a bool; any error means false.
func (s *Service) HasFeature(ctx context.Context, userID uuid.UUID, f catalog.Feature) bool {
	check, err := s.CheckFeature(ctx, userID, f)
	return err == nil && check.Allowed
}

// Summary reports plan, limits, live usage, per-resource checks and
// per-feature access for the user. A plan missing from the catalog yields
// a summary that denies every resource and feature.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	plan, plans, err := s.currentPlan(ctx, userID)
	unavailable := errors.Is(err, ErrPlanNotFound)
	if err != nil && !unavailable {
		return Summary{}, err
	}

	sum := Summary{
		Plan:     PlanInfo{ID: plan.ID, Name: plan.Name, Price: plan.Price},
		Limits:   plan.Limits,
		Usage:    make(map[catalog.Resource]int64, len(catalog.Resources)),
		Checks:   make(map[catalog.Resource]Check, len(catalog.Resources)),
		Features: make(map[catalog.Feature]bool, len(catalog.Features)),
	}
	for _, res := range catalog.Resources {
		current, err := s.counters.Count(ctx, userID, res)
		if err != nil {
			return Summary{}, err
		}
		sum.Usage[res] = current
		if unavailable {
			sum.Checks[res] = Check{Resource: res, Current: current, Message: planUnavailable}
			continue
		}
		sum.Checks[res] = s.evaluate(plan, plans, res, current)
	}
	for _, f := range catalog.Features {
		sum.Features[f] = !unavailable && plan.HasFeature(f)
	}
	if unavailable {
		sum.Message = planUnavailable
	}
	return sum, nil
}

func (s *Service) evaluate(plan catalog.Plan, plans []catalog.Plan, res catalog.Resource, current int64) Check {
	limit, _ := plan.Limit(res)
	check := Check{
		Resource: res,
		Current:  current,
		Limit:    limit,
		Allowed:  plan.Allows(res, current),
	}
	if check.Allowed {
		return check
	}

	check.UpgradeRequired = true
	if next, ok := catalog.UpgradeFor(plans, plan, res); ok {
		check.UpgradeTo = next.ID
		check.Message = fmt.Sprintf("%s limit reached (%d/%d). Upgrade to %s (%s/month) to add more.",
			resourceLabel(res), current, limit, next.Name, catalog.FormatPrice(next.Price, s.lang))
	} else {
		check.Message = fmt.Sprintf("%s limit reached (%d/%d). Please contact support to raise it.",
			resourceLabel(res), current, limit)
	}
	return check
}

// currentPlan resolves the user's plan, defaulting to free. It returns the
// ranked catalog alongside so callers can name the next tier.
func (s *Service) currentPlan(ctx context.Context, userID uuid.UUID) (catalog.Plan, []catalog.Plan, error) {
	planID, err := s.plans.ActivePlanID(ctx, userID)
	if err != nil {
		return catalog.Plan{}, nil, errors.Join(ErrFailedToResolvePlan, err)
	}
	if planID == "" {
		planID = catalog.Free
	}

	plans, err := s.catalog.All(ctx)
	if err != nil {
		return catalog.Plan{}, nil, err
	}
	for _, p := range plans {
		if p.ID == planID {
			return p, plans, nil
		}
	}

	s.log.ErrorContext(ctx, "subscription references a plan missing from the catalog",
		logger.UserID(userID),
		logger.PlanID(planID),
		logger.Component("limits"),
	)
	return catalog.Plan{ID: planID}, nil, fmt.Errorf("%w: %q", ErrPlanNotFound, planID)
}

func resourceLabel(r catalog.Resource) string {
	s := strings.TrimSuffix(string(r), "s")
	return strings.ToUpper(s[:1]) + s[1:]
}

func featureLabel(f catalog.Feature) string {
	switch f {
	case catalog.FeatureThemeEditing:
		return "Theme editing"
	case catalog.FeatureAnalytics:
		return "Analytics"
	case catalog.FeaturePrioritySupport:
		return "Priority support"
	}
	return string(f)
}
