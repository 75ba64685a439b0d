package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/chefatlas/atlas-cli/internal/model"
	"github.com/chefatlas/atlas-cli/internal/store"
)

// UpdateSummary reports what a country-wide update pass did.
type UpdateSummary struct {
	Country              string `json:"country"`
	SeasonsChecked       int    `json:"seasonsChecked"`
	CandidatesAdded      int    `json:"candidatesAdded"`
	RestaurantsRefreshed int    `json:"restaurantsRefreshed"`
	RestaurantsFilled    int    `json:"restaurantsFilled"`
}

// BackfillSeason tops up a season's roster when it has fewer participants
// than the configured floor. Candidates come from a free-text roster fetch
// coerced into JSON by the reasoning provider; existing non-null chef fields
// are never overwritten.
func (e *Enricher) BackfillSeason(ctx context.Context, season *model.Season) (int, error) {
	count, err := e.store.CountParticipants(ctx, season.ID)
	if err != nil {
		return 0, err
	}
	if count >= e.minCandidates {
		return 0, nil
	}

	log := e.log.With(zap.String("country", season.Country), zap.Int("season", season.Number))

	roster, err := e.fetcher.Complete(ctx, "", RosterPrompt(season.Country, season.Number))
	if err != nil {
		return 0, err
	}
	coerced, err := e.reasoner.Complete(ctx, coerceSystemPrompt, CoercePrompt(roster))
	if err != nil {
		return 0, err
	}
	candidates, err := ExtractArray(coerced)
	if err != nil {
		log.Warn("backfill: unparseable roster, no candidates added", zap.Error(err))
		return 0, nil
	}

	added := 0
	for _, cand := range candidates {
		name, _ := cand["name"].(string)
		if name == "" {
			continue
		}
		chef, err := e.upsertChef(ctx, name, cand)
		if err != nil {
			log.Error("backfill: chef upsert failed", zap.String("chef", name), zap.Error(err))
			continue
		}

		p := model.Participation{ChefID: chef.ID, SeasonID: season.ID}
		if placement, ok := candInt(cand, "placement"); ok {
			p.Placement = &placement
		}
		if isWinner, _ := cand["isWinner"].(bool); isWinner {
			p.IsWinner = true
		}
		if _, err := e.store.UpsertParticipation(ctx, p); err != nil {
			log.Error("backfill: participation upsert failed", zap.String("chef", name), zap.Error(err))
			continue
		}
		added++
	}
	return added, nil
}

// upsertChef finds a chef by name or creates one, filling only columns that
// are currently null.
func (e *Enricher) upsertChef(ctx context.Context, name string, cand map[string]any) (*model.Chef, error) {
	bio := candStr(cand, "bio")
	status := candStr(cand, "status")

	chef, err := e.store.GetChefByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if chef == nil {
		return e.store.CreateChef(ctx, model.Chef{Name: name, Bio: bio, Status: status})
	}

	upd := model.ChefUpdate{}
	dirty := false
	if chef.Bio == nil && bio != nil {
		upd.Bio = bio
		dirty = true
	}
	if chef.Status == nil && status != nil {
		upd.Status = status
		dirty = true
	}
	if !dirty {
		return chef, nil
	}
	return e.store.UpdateChef(ctx, chef.ID, upd)
}

// UpdateCountry runs the batch pass for one country: season roster backfill,
// refresh of every restaurant with stale fields, and a fill pass over
// restaurants missing an address. Outbound chains are paced by the shared
// rate limiter; per-entity failures are logged and skipped.
func (e *Enricher) UpdateCountry(ctx context.Context, country string) (*UpdateSummary, error) {
	summary := &UpdateSummary{Country: country}
	log := e.log.With(zap.String("country", country))

	seasons, err := e.store.ListSeasonsByCountry(ctx, country)
	if err != nil {
		return nil, err
	}
	for i := range seasons {
		if err := e.limiter.Wait(ctx); err != nil {
			return summary, err
		}
		added, err := e.BackfillSeason(ctx, &seasons[i])
		if err != nil {
			log.Error("update: season backfill failed", zap.Int("season", seasons[i].Number), zap.Error(err))
			continue
		}
		summary.SeasonsChecked++
		summary.CandidatesAdded += added
	}

	restaurants, err := e.store.ListRestaurants(ctx, store.RestaurantFilter{Country: country})
	if err != nil {
		return summary, err
	}
	for i := range restaurants {
		id := restaurants[i].ID
		detail, err := e.store.GetRestaurantDetail(ctx, id)
		if err != nil || detail == nil {
			continue
		}
		staleSet := StaleFields(&detail.Restaurant, detail.Chef, e.now(), e.threshold)
		if len(staleSet) == 0 {
			continue
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return summary, err
		}
		if refreshed := e.refresh(ctx, detail, staleSet); len(refreshed) > 0 {
			summary.RestaurantsRefreshed++
		}
	}

	missing, err := e.store.ListRestaurantsMissingAddress(ctx, country)
	if err != nil {
		return summary, err
	}
	for i := range missing {
		if err := e.limiter.Wait(ctx); err != nil {
			return summary, err
		}
		if _, err := e.FillMissingFields(ctx, missing[i].ID); err != nil {
			log.Error("update: fill pass failed", zap.Int("restaurant_id", missing[i].ID), zap.Error(err))
			continue
		}
		summary.RestaurantsFilled++
	}

	return summary, nil
}

func candStr(cand map[string]any, key string) *string {
	if s, ok := cand[key].(string); ok && s != "" {
		return &s
	}
	return nil
}

func candInt(cand map[string]any, key string) (int, bool) {
	if f, ok := cand[key].(float64); ok {
		return int(f), true
	}
	return 0, false
}
