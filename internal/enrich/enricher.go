package enrich

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/chefatlas/atlas-cli/internal/config"
	"github.com/chefatlas/atlas-cli/internal/model"
	"github.com/chefatlas/atlas-cli/internal/store"
)

// Completer is the provider surface the orchestrator needs: one system+user
// round trip returning text. Both provider clients satisfy it.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Enricher runs the staleness-driven enrichment flow. Concurrent panel
// requests for the same restaurant are coalesced through a singleflight
// group so one refresh chain runs at a time per row.
type Enricher struct {
	store    store.Store
	fetcher  Completer // data-fetch provider (Perplexity)
	reasoner Completer // meta-prompting and comparison provider (OpenRouter)

	threshold     time.Duration
	minCandidates int
	limiter       *rate.Limiter

	group singleflight.Group
	now   func() time.Time
	log   *zap.Logger
}

// New creates an Enricher from configuration.
func New(st store.Store, fetcher, reasoner Completer, cfg config.EnrichConfig) *Enricher {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Enricher{
		store:         st,
		fetcher:       fetcher,
		reasoner:      reasoner,
		threshold:     time.Duration(cfg.StalenessDays) * 24 * time.Hour,
		minCandidates: cfg.MinSeasonCandidates,
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		now:           time.Now,
		log:           zap.L(),
	}
}

// PanelData returns the restaurant, its chef and season, and per-field
// provenance metadata. Stale fields trigger a refresh first; provider
// failures degrade to returning the stored values.
func (e *Enricher) PanelData(ctx context.Context, id int) (*model.PanelData, error) {
	detail, err := e.store.GetRestaurantDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, nil
	}

	staleSet := StaleFields(&detail.Restaurant, detail.Chef, e.now(), e.threshold)

	refreshed := map[model.Field]bool{}
	if len(staleSet) > 0 {
		key := "restaurant:" + strconv.Itoa(id)
		v, _, _ := e.group.Do(key, func() (any, error) {
			return e.refresh(ctx, detail, staleSet), nil
		})
		if m, ok := v.(map[model.Field]bool); ok {
			refreshed = m
		}

		if len(refreshed) > 0 {
			detail, err = e.store.GetRestaurantDetail(ctx, id)
			if err != nil {
				return nil, err
			}
			if detail == nil {
				return nil, nil
			}
		}
	}

	meta := make(map[model.Field]model.FieldMetadata, len(model.TrackedFields))
	for _, f := range model.TrackedFields {
		origin := model.OriginDB
		if refreshed[f] {
			origin = model.OriginRefreshed
		}
		meta[f] = model.FieldMetadata{Origin: origin, UpdatedAt: e.fieldTimestamp(detail, f)}
	}

	return &model.PanelData{
		Restaurant: detail.Restaurant,
		Chef:       detail.Chef,
		Season:     detail.Season,
		Metadata:   meta,
	}, nil
}

func (e *Enricher) fieldTimestamp(d *model.RestaurantDetail, f model.Field) *time.Time {
	switch f {
	case model.FieldRestaurantName:
		return d.Restaurant.NameUpdatedAt
	case model.FieldAddress:
		return d.Restaurant.AddressUpdatedAt
	case model.FieldCurrentChefName:
		return d.Restaurant.ChefAssociationUpdatedAt
	case model.FieldBio:
		if d.Chef != nil {
			return d.Chef.LastUpdated
		}
	}
	return nil
}

// refresh runs the meta-prompt, fetch, compare, merge chain for one
// restaurant. It returns the set of fields it refreshed. A gateway failure
// on either of the first two calls aborts the attempt with all timestamps
// unchanged; a parse failure degrades to no updates.
func (e *Enricher) refresh(ctx context.Context, detail *model.RestaurantDetail, staleSet []model.Field) map[model.Field]bool {
	r := &detail.Restaurant
	chefName := ""
	if detail.Chef != nil {
		chefName = detail.Chef.Name
	}
	log := e.log.With(zap.Int("restaurant_id", r.ID), zap.String("restaurant", r.Name))

	prompt, err := e.reasoner.Complete(ctx, metaSystemPrompt, MetaPrompt(r, chefName, staleSet))
	if err != nil {
		log.Warn("enrich: meta-prompt failed, aborting", zap.Error(err))
		return nil
	}

	raw, err := e.fetcher.Complete(ctx, FetchInstruction, prompt)
	if err != nil {
		log.Warn("enrich: data fetch failed, aborting", zap.Error(err))
		return nil
	}

	fresh, err := ExtractObject(raw)
	if err != nil {
		log.Warn("enrich: unparseable provider output, no updates", zap.Error(err))
		return nil
	}

	if e.hasConflict(ctx, detail, fresh, log) {
		return e.fullRefresh(ctx, detail, log)
	}
	return e.merge(ctx, detail, staleSet, fresh, log)
}

// hasConflict asks the reasoning provider for a verdict. Only the exact
// token CONFLICT routes to the full-profile path; anything else, including a
// provider failure, falls through to the field merge.
func (e *Enricher) hasConflict(ctx context.Context, detail *model.RestaurantDetail, fresh FieldValues, log *zap.Logger) bool {
	prompt, err := ComparisonPrompt(detail, fresh)
	if err != nil {
		log.Warn("enrich: comparison prompt build failed", zap.Error(err))
		return false
	}
	verdict, err := e.reasoner.Complete(ctx, compareSystemPrompt, prompt)
	if err != nil {
		log.Warn("enrich: comparison failed, treating as OK", zap.Error(err))
		return false
	}
	return strings.TrimSpace(verdict) == "CONFLICT"
}

// fullRefresh fetches a complete replacement profile and merges every
// tracked field from it, plus the chef's status.
func (e *Enricher) fullRefresh(ctx context.Context, detail *model.RestaurantDetail, log *zap.Logger) map[model.Field]bool {
	chefName := ""
	if detail.Chef != nil {
		chefName = detail.Chef.Name
	}

	raw, err := e.fetcher.Complete(ctx, FetchInstruction, FullProfilePrompt(&detail.Restaurant, chefName))
	if err != nil {
		log.Warn("enrich: full-profile fetch failed, aborting", zap.Error(err))
		return nil
	}
	fresh, err := ExtractObject(raw)
	if err != nil {
		log.Warn("enrich: unparseable full profile, no updates", zap.Error(err))
		return nil
	}

	refreshed := e.merge(ctx, detail, model.TrackedFields, fresh, log)

	if status, ok := fresh[model.Field("status")]; ok && status != nil && detail.Chef != nil {
		if _, err := e.store.UpdateChef(ctx, detail.Chef.ID, model.ChefUpdate{Status: status}); err != nil {
			log.Error("enrich: chef status update failed", zap.Error(err))
		}
	}
	return refreshed
}

// merge applies fresh values field by field. Each write is an independent
// statement; a failed write is logged and the remaining fields still apply.
func (e *Enricher) merge(ctx context.Context, detail *model.RestaurantDetail, fields []model.Field, fresh FieldValues, log *zap.Logger) map[model.Field]bool {
	r := &detail.Restaurant
	now := e.now()
	refreshed := map[model.Field]bool{}

	for _, f := range fields {
		switch f {
		case model.FieldRestaurantName:
			v, ok := fresh[f]
			if !ok || v == nil || *v == "" {
				continue
			}
			var err error
			if *v != r.Name {
				err = e.store.SetRestaurantName(ctx, r.ID, *v, now)
			} else {
				err = e.store.TouchRestaurantField(ctx, r.ID, f, now)
			}
			if err != nil {
				log.Error("enrich: name write failed", zap.Error(err))
				continue
			}
			refreshed[f] = true

		case model.FieldAddress:
			v, ok := fresh[f]
			if !ok {
				continue
			}
			var err error
			if !strEqual(v, r.Address) {
				err = e.store.SetRestaurantAddress(ctx, r.ID, v, now)
			} else {
				err = e.store.TouchRestaurantField(ctx, r.ID, f, now)
			}
			if err != nil {
				log.Error("enrich: address write failed", zap.Error(err))
				continue
			}
			refreshed[f] = true

		case model.FieldCurrentChefName:
			v, ok := fresh[f]
			if !ok || v == nil || *v == "" {
				continue
			}
			chef, err := e.store.GetChefByName(ctx, *v)
			if err != nil {
				log.Error("enrich: chef lookup failed", zap.Error(err))
				continue
			}
			if chef == nil {
				log.Warn("enrich: no chef by that name, association unchanged", zap.String("chef", *v))
				continue
			}
			if chef.ID != r.ChefID {
				err = e.store.SetRestaurantChef(ctx, r.ID, chef.ID, now)
			} else {
				err = e.store.TouchRestaurantField(ctx, r.ID, f, now)
			}
			if err != nil {
				log.Error("enrich: chef association write failed", zap.Error(err))
				continue
			}
			refreshed[f] = true

		case model.FieldBio:
			if detail.Chef == nil {
				log.Warn("enrich: no known chef, bio skipped")
				continue
			}
			v, ok := fresh[f]
			if !ok {
				continue
			}
			if err := e.store.SetChefBio(ctx, detail.Chef.ID, v, now); err != nil {
				log.Error("enrich: bio write failed", zap.Error(err))
				continue
			}
			refreshed[f] = true
		}
	}
	return refreshed
}

// ChefInfo fetches a live biography and opportunistically persists it when
// the chef is already known.
func (e *Enricher) ChefInfo(ctx context.Context, chefName, restaurantName string) (string, error) {
	bio, err := e.fetcher.Complete(ctx, "", ChefInfoPrompt(chefName, restaurantName))
	if err != nil {
		return "", err
	}

	chef, err := e.store.GetChefByName(ctx, chefName)
	if err != nil {
		e.log.Error("enrich: chef lookup failed", zap.Error(err))
		return bio, nil
	}
	if chef != nil {
		if err := e.store.SetChefBio(ctx, chef.ID, &bio, e.now()); err != nil {
			e.log.Error("enrich: bio persist failed", zap.Error(err))
		}
	}
	return bio, nil
}

// fillTargets are the restaurant columns the fill-missing-fields endpoint
// can populate.
var fillTargets = []struct {
	key     string
	missing func(*model.Restaurant) bool
}{
	{"description", func(r *model.Restaurant) bool { return r.Description == nil }},
	{"address", func(r *model.Restaurant) bool { return r.Address == nil }},
	{"openDate", func(r *model.Restaurant) bool { return r.OpenDate == nil }},
	{"closeDate", func(r *model.Restaurant) bool { return r.CloseDate == nil }},
}

// FillMissingFields populates a restaurant's null columns with one provider
// round trip. Parse failures leave the record unchanged.
func (e *Enricher) FillMissingFields(ctx context.Context, id int) (*model.Restaurant, error) {
	r, err := e.store.GetRestaurant(ctx, id)
	if err != nil || r == nil {
		return r, err
	}

	var missing []string
	for _, t := range fillTargets {
		if t.missing(r) {
			missing = append(missing, t.key)
		}
	}
	if len(missing) == 0 {
		return r, nil
	}

	raw, err := e.fetcher.Complete(ctx, FetchInstruction, FillMissingPrompt(r, missing))
	if err != nil {
		return nil, err
	}
	fresh, err := ExtractObject(raw)
	if err != nil {
		e.log.Warn("enrich: unparseable fill response, no updates",
			zap.Int("restaurant_id", id), zap.Error(err))
		return r, nil
	}

	upd := model.RestaurantUpdate{}
	changed := false
	for _, key := range missing {
		v, ok := fresh[model.Field(key)]
		if !ok || v == nil {
			continue
		}
		changed = true
		switch key {
		case "description":
			upd.Description = v
		case "address":
			upd.Address = v
		case "openDate":
			upd.OpenDate = v
		case "closeDate":
			upd.CloseDate = v
		}
	}
	if !changed {
		return r, nil
	}
	return e.store.UpdateRestaurant(ctx, id, upd)
}

func strEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
