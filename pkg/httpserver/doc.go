// Package httpserver runs the HTTP API with graceful shutdown and provides
// the base chi router and health endpoint shared by every service.
//
//	r := httpserver.NewRouter(log)
//	r.Get("/health", httpserver.Health(log, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)}))
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Run returns once ctx is done and in-flight requests have drained, or
// the shutdown timeout has elapsed. Listen failures wrap ErrStart and
// shutdown failures wrap ErrShutdown.
package httpserver
