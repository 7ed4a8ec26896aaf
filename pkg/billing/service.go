package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/logger"
	"github.com/dmitrymomot/biolink/pkg/validator"
)

// Service runs checkout, webhook processing and cancellation on top of a
// Store, the plan catalog and one or more payment gateways.
type Service struct {
	cfg      Config
	store    Store
	catalog  catalog.Catalog
	primary  gateway.Gateway
	gateways map[string]gateway.Gateway
	notifier Notifier
	validate *validator.Validator
	log      *slog.Logger
	now      func() time.Time
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

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithGateway registers an additional gateway whose webhooks the service
// accepts. Checkout always uses the primary gateway.
func WithGateway(gw gateway.Gateway) Option {
	return func(s *Service) {
		if gw != nil {
			s.gateways[gw.Name()] = gw
		}
	}
}

// NewService builds a Service. Panics if a required dependency is nil.
func NewService(cfg Config, store Store, cat catalog.Catalog, primary gateway.Gateway, opts ...Option) *Service {
	if store == nil {
		panic("billing: Store is required")
	}
	if cat == nil {
		panic("billing: Catalog is required")
	}
	if primary == nil {
		panic("billing: Gateway is required")
	}

	s := &Service{
		cfg:      cfg.withDefaults(),
		store:    store,
		catalog:  cat,
		primary:  primary,
		gateways: map[string]gateway.Gateway{primary.Name(): primary},
		notifier: nopNotifier{},
		validate: validator.New(),
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("billing"))
	return s
}

// Gateway returns the registered gateway with the given name.
func (s *Service) Gateway(name string) (gateway.Gateway, bool) {
	gw, ok := s.gateways[name]
	return gw, ok
}

// ActivePlanID returns the plan of the user's live subscription, or "" when
// the user has none. It satisfies limits.PlanResolver.
func (s *Service) ActivePlanID(ctx context.Context, userID uuid.UUID) (string, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve active plan: %w", err)
	}
	if !sub.Live(s.now()) {
		return "", nil
	}
	return sub.PlanID, nil
}

// Subscription returns the user's subscription row.
func (s *Service) Subscription(ctx context.Context, userID uuid.UUID) (Subscription, error) {
	return s.store.GetSubscription(ctx, userID)
}

// PlanInUse reports whether a live subscription references planID. It is
// installed as the catalog's in-use check.
func (s *Service) PlanInUse(ctx context.Context, planID string) (bool, error) {
	return s.store.PlanInUse(ctx, planID)
}

// ExpireSubscriptions deactivates entitled subscriptions whose period ended
// before now.
func (s *Service) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.ExpireSubscriptions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}
	if n > 0 {
		s.log.InfoContext(ctx, "subscriptions expired",
			logger.Event("subscriptions_expired"),
			slog.Int64("count", n),
		)
	}
	return n, nil
}
