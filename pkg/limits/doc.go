// Package limits enforces plan limits and feature flags for a user.
//
// The user's plan comes from a PlanResolver (free when nothing is live)
// and its limits from a catalog.Catalog. Usage is counted at call time
// through a CounterRegistry; NewPgCounters registers the Postgres counts
// for links, forms and webhooks. A plan id missing from the catalog fails
// closed: every check is denied.
//
// Denied checks set UpgradeRequired and name the cheapest plan that raises
// the limit.
//
//	check, err := svc.CheckLimit(ctx, userID, catalog.ResourceForms)
//	if err == nil && !check.Allowed {
//	    // check.Message: "Form limit reached (5/5). Upgrade to Business ..."
//	}
//
// RequireCapacity wraps resource-creating routes with the same check.
// The count and the insert are not atomic, so concurrent creates from one
// user may overshoot by the number of requests in flight.
package limits
