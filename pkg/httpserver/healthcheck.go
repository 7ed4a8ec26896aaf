package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/biolink/handler"
	"github.com/dmitrymomot/biolink/pkg/logger"
)

// HealthTimeout bounds a single probe.
const HealthTimeout = 3 * time.Second

// Check is one named dependency probe.
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// Health runs every check and answers 200 when all pass, 503 otherwise.
// Without checks it is a plain liveness probe.
func Health(log *slog.Logger, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), HealthTimeout)
		defer cancel()

		status := make(map[string]string, len(checks))
		healthy := true
		for _, c := range checks {
			if err := c.Fn(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed",
					slog.String("check", c.Name),
					logger.Error(err),
				)
				status[c.Name] = "down"
				healthy = false
				continue
			}
			status[c.Name] = "up"
		}

		if !healthy {
			_ = handler.JSON(status,
				handler.WithJSONStatus(http.StatusServiceUnavailable),
				handler.WithJSONSuccess(false),
				handler.WithJSONMessage("NOT_READY"),
			).Render(w, r)
			return
		}
		_ = handler.JSON(status, handler.WithJSONMessage("READY")).Render(w, r)
	}
}
