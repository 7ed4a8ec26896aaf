package limits

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/handler"
	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/logger"
)

// ErrLimitExceededHTTP is rendered when RequireCapacity denies a request.
var ErrLimitExceededHTTP = handler.NewHTTPError(http.StatusForbidden, "limit_exceeded")

// RequireCapacity guards a resource-creating route. The limit is checked
// inside the request, right before the wrapped handler runs. Denied
// requests get 403 with the Check as data; unauthenticated ones get 401.
func RequireCapacity(svc *Service, res catalog.Resource, userID func(*http.Request) (uuid.UUID, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := userID(r)
			if !ok {
				_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
				return
			}

			check, err := svc.CheckLimit(r.Context(), id, res)
			if err != nil {
				svc.log.ErrorContext(r.Context(), "capacity check failed",
					logger.UserID(id),
					logger.Error(err),
					logger.Component("limits"),
				)
				_ = handler.JSONError(err).Render(w, r)
				return
			}
			if !check.Allowed {
				_ = handler.JSONError(ErrLimitExceededHTTP.WithMessage(check.Message), handler.WithJSONData(check)).Render(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
