package limits

import (
	"github.com/dmitrymomot/biolink/pkg/catalog"
)

// Check is the outcome of a resource limit evaluation.
type Check struct {
	Resource        catalog.Resource `json:"resource"`
	Allowed         bool             `json:"allowed"`
	Current         int64            `json:"current"`
	Limit           int64            `json:"limit"`
	UpgradeRequired bool             `json:"upgradeRequired"`
	UpgradeTo       string           `json:"upgradeTo,omitempty"`
	Message         string           `json:"message,omitempty"`
}

// FeatureCheck is the boolean analogue of Check for feature flags.
type FeatureCheck struct {
	Feature         catalog.Feature `json:"feature"`
	Allowed         bool            `json:"allowed"`
	UpgradeRequired bool            `json:"upgradeRequired"`
	UpgradeTo       string          `json:"upgradeTo,omitempty"`
	Message         string          `json:"message,omitempty"`
}

// PlanInfo is the subset of the plan shown to end users.
type PlanInfo struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Price catalog.Price `json:"price"`
}

// Summary aggregates everything the plan-limits screen needs.
type Summary struct {
	Plan     PlanInfo                   `json:"plan"`
	Limits   catalog.Limits             `json:"limits"`
	Usage    map[catalog.Resource]int64 `json:"usage"`
	Checks   map[catalog.Resource]Check `json:"checks"`
	Features map[catalog.Feature]bool   `json:"features"`
	Message  string                     `json:"message,omitempty"`
}
