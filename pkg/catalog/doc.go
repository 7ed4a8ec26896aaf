// Package catalog defines the purchasable plans and the stores that hold
// them.
//
// A Plan carries numeric limits per Resource (-1 is unlimited), boolean
// FeatureFlags, a Price and a Rank used to find upgrade targets. Memory
// and Redis implement Catalog. Replace swaps the whole set atomically and
// refuses to drop a plan that an InUseFunc reports as referenced. Update
// merges a single plan from a loosely typed payload: every required field
// must be present and coerce, or nothing is applied.
//
// Plans are seeded from YAML:
//
//	plans, err := catalog.LoadYAML("config/plans.yaml")
//	cat, err := catalog.NewMemory(plans, catalog.WithInUseCheck(billingSvc.PlanInUse))
package catalog
