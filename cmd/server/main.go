// Command server runs the billing API: checkout, processor webhooks, plan
// limits and the administrator catalog, plus the subscription expiry job.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/biolink/db"
	"github.com/dmitrymomot/biolink/pkg/auth"
	"github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/billing/pgstore"
	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/config"
	"github.com/dmitrymomot/biolink/pkg/email"
	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/gateway/asaas"
	"github.com/dmitrymomot/biolink/pkg/gateway/paddle"
	"github.com/dmitrymomot/biolink/pkg/httpserver"
	"github.com/dmitrymomot/biolink/pkg/jobs"
	"github.com/dmitrymomot/biolink/pkg/limits"
	"github.com/dmitrymomot/biolink/pkg/logger"
	"github.com/dmitrymomot/biolink/pkg/notify"
	"github.com/dmitrymomot/biolink/pkg/pg"
	"github.com/dmitrymomot/biolink/pkg/ratelimiter"
	"github.com/dmitrymomot/biolink/pkg/redis"
	billinghttp "github.com/dmitrymomot/biolink/svc/billing"
)

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	Name      string `env:"APP_NAME" envDefault:"biolink-billing"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
}

func main() {
	config.LoadEnvFiles(".env")

	var app appConfig
	config.MustLoad(&app)

	opts := []logger.Option{
		logger.WithEnvironment(app.Env, app.Name),
		logger.WithContextExtractors(logger.RequestIDExtractor(), auth.UserIDExtractor()),
	}
	if app.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(app.LogLevel))
	}
	if app.LogFormat != "" {
		opts = append(opts, logger.WithFormat(logger.Format(app.LogFormat)))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		pgCfg      pg.Config
		redisCfg   redis.Config
		httpCfg    httpserver.Config
		billingCfg billing.Config
		catalogCfg catalog.Config
		authCfg    auth.Config
		emailCfg   email.Config
		paddleCfg  paddle.Config
		jobsCfg    jobs.Config
		rateCfg    ratelimiter.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&redisCfg) },
		func() error { return config.Load(&httpCfg) },
		func() error { return config.Load(&billingCfg) },
		func() error { return config.Load(&catalogCfg) },
		func() error { return config.Load(&authCfg) },
		func() error { return config.Load(&emailCfg) },
		func() error { return config.Load(&paddleCfg) },
		func() error { return config.Load(&jobsCfg) },
		func() error { return config.Load(&rateCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if pgCfg.AutoMigrate {
		if err := pg.Migrate(ctx, pool, pgCfg, log, db.Migrations()); err != nil {
			return err
		}
	}

	healthChecks := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}}

	// The in-use check needs the billing service, which needs the catalog.
	var svc *billing.Service
	inUse := catalog.WithInUseCheck(func(ctx context.Context, planID string) (bool, error) {
		return svc.PlanInUse(ctx, planID)
	})

	seed, err := catalog.LoadYAML(catalogCfg.PlansFile)
	if err != nil {
		return err
	}
	var (
		plans     catalog.Catalog
		rateStore ratelimiter.Store = ratelimiter.NewMemoryStore()
	)
	if redisCfg.Enabled() {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		healthChecks = append(healthChecks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
		rateStore = ratelimiter.NewRedisStore(client)

		if plans, err = catalog.NewRedis(ctx, client, catalogCfg.RedisKey, seed, inUse); err != nil {
			return err
		}
	} else {
		log.Warn("REDIS_URL not set, plan catalog edits are kept in process memory")
		if plans, err = catalog.NewMemory(seed, inUse); err != nil {
			return err
		}
	}

	gateways, err := buildGateways(billingCfg, paddleCfg, log)
	if err != nil {
		return err
	}

	sender, err := email.New(emailCfg, log)
	if err != nil {
		return err
	}
	mailer := notify.New(sender, emailCfg.OperatorsTo, notify.WithLogger(log))

	billingOpts := []billing.Option{
		billing.WithLogger(log),
		billing.WithNotifier(mailer),
	}
	for _, gw := range gateways[1:] {
		billingOpts = append(billingOpts, billing.WithGateway(gw))
	}
	svc = billing.NewService(billingCfg, pgstore.New(pool), plans, gateways[0], billingOpts...)

	limitsSvc := limits.NewService(plans, limits.NewPgCounters(pool), svc, limits.WithLogger(log))

	authSvc, err := auth.New(authCfg)
	if err != nil {
		return err
	}

	checkoutLimiter, err := ratelimiter.NewBucket(rateStore, rateCfg)
	if err != nil {
		return err
	}

	scheduler := jobs.New(jobsCfg, jobs.WithLogger(log))
	if err := scheduler.RegisterExpiry(jobsCfg, svc); err != nil {
		return err
	}
	scheduler.Start(ctx)

	r := httpserver.NewRouter(log, httpCfg.RequestTimeout)
	r.Get("/health", httpserver.Health(log, healthChecks...))
	billinghttp.New(svc, limitsSvc, plans, authSvc,
		billinghttp.WithLogger(log),
		billinghttp.WithCheckoutLimiter(checkoutLimiter),
	).Routes(r)

	return httpserver.New(httpCfg, httpserver.WithLogger(log)).Run(ctx, r)
}

// buildGateways returns the primary gateway first. Paddle is added as a
// webhook-only secondary whenever its key is configured.
func buildGateways(cfg billing.Config, paddleCfg paddle.Config, log *slog.Logger) ([]gateway.Gateway, error) {
	var primary gateway.Gateway
	var extra []gateway.Gateway

	switch cfg.Gateway {
	case asaas.ProviderName:
		var asaasCfg asaas.Config
		if err := config.Load(&asaasCfg); err != nil {
			return nil, err
		}
		c, err := asaas.New(asaasCfg, asaas.WithLogger(log))
		if err != nil {
			return nil, err
		}
		primary = c
	case paddle.ProviderName:
		if !paddleCfg.Enabled() {
			return nil, errors.New("BILLING_GATEWAY=paddle requires PADDLE_API_KEY")
		}
	default:
		return nil, fmt.Errorf("%w: %q", billing.ErrUnknownGateway, cfg.Gateway)
	}

	if paddleCfg.Enabled() {
		p, err := paddle.New(paddleCfg)
		if err != nil {
			return nil, err
		}
		if primary == nil {
			primary = p
		} else {
			extra = append(extra, p)
		}
	}
	return append([]gateway.Gateway{primary}, extra...), nil
}
