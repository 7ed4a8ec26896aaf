package limits

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/pkg/catalog"
	"github.com/dmitrymomot/biolink/pkg/pg"
)

// Count queries over the tables owned by the link, form and webhook modules.
// Soft-deleted rows do not count against the plan.
var countQueries = map[catalog.Resource]string{
	catalog.ResourceLinks:    `SELECT count(*) FROM links WHERE user_id = $1 AND deleted_at IS NULL`,
	catalog.ResourceForms:    `SELECT count(*) FROM forms WHERE user_id = $1 AND deleted_at IS NULL`,
	catalog.ResourceWebhooks: `SELECT count(*) FROM webhooks WHERE user_id = $1 AND deleted_at IS NULL`,
}

// NewPgCounters registers a live count(*) counter per resource.
func NewPgCounters(db pg.Querier) CounterRegistry {
	r := NewRegistry()
	for res, query := range countQueries {
		r.Register(res, pgCounter(db, query))
	}
	return r
}

func pgCounter(db pg.Querier, query string) CounterFunc {
	return func(ctx context.Context, userID uuid.UUID) (int64, error) {
		var n int64
		if err := db.QueryRow(ctx, query, userID).Scan(&n); err != nil {
			return 0, err
		}
		return n, nil
	}
}
