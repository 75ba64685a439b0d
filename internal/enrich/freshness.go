// Package enrich implements the staleness-driven enrichment flow: deciding
// which restaurant fields need a refresh, synthesizing provider prompts,
// parsing the responses, and merging accepted values back into the store.
package enrich

import (
	"time"

	"github.com/chefatlas/atlas-cli/internal/model"
)

// stale reports whether a freshness timestamp has expired. A missing
// timestamp is always stale.
func stale(ts *time.Time, now time.Time, threshold time.Duration) bool {
	if ts == nil {
		return true
	}
	return ts.Before(now.Add(-threshold))
}

// StaleFields returns the tracked fields of a restaurant that need a refresh,
// in refresh order. A field whose underlying value is absent is stale
// regardless of its timestamp. The chef's record timestamp stands in for bio
// freshness; a restaurant with no resolvable chef has a stale bio by
// definition.
func StaleFields(r *model.Restaurant, chef *model.Chef, now time.Time, threshold time.Duration) []model.Field {
	var out []model.Field

	if r.Name == "" || stale(r.NameUpdatedAt, now, threshold) {
		out = append(out, model.FieldRestaurantName)
	}
	if r.Address == nil || stale(r.AddressUpdatedAt, now, threshold) {
		out = append(out, model.FieldAddress)
	}
	if stale(r.ChefAssociationUpdatedAt, now, threshold) {
		out = append(out, model.FieldCurrentChefName)
	}
	if chef == nil || chef.Bio == nil || stale(chef.LastUpdated, now, threshold) {
		out = append(out, model.FieldBio)
	}

	return out
}
