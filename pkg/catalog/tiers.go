package catalog

import (
	"cmp"
	"slices"
)

// SortByRank orders plans from cheapest tier to most expensive, in place.
func SortByRank(plans []Plan) {
	slices.SortFunc(plans, func(a, b Plan) int { return cmp.Compare(a.Rank, b.Rank) })
}

// UpgradeFor returns the lowest-ranked plan above current whose limit for r
// is higher than current's. plans must be sorted by rank.
func UpgradeFor(plans []Plan, current Plan, r Resource) (Plan, bool) {
	have, ok := current.Limit(r)
	if !ok || have == Unlimited {
		return Plan{}, false
	}
	for _, p := range plans {
		if p.Rank <= current.Rank {
			continue
		}
		if limit, _ := p.Limit(r); limit == Unlimited || limit > have {
			return p, true
		}
	}
	return Plan{}, false
}

// UpgradeForFeature returns the lowest-ranked plan above current that
// enables f. plans must be sorted by rank.
func UpgradeForFeature(plans []Plan, current Plan, f Feature) (Plan, bool) {
	for _, p := range plans {
		if p.Rank > current.Rank && p.HasFeature(f) {
			return p, true
		}
	}
	return Plan{}, false
}
