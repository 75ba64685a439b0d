// Package seed loads the embedded starter dataset: the chefs, seasons,
// participations, and restaurants the map ships with before enrichment has
// run. Loading is idempotent so reseeding an existing database is safe.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/chefatlas/atlas-cli/internal/db"
	"github.com/chefatlas/atlas-cli/internal/model"
	"github.com/chefatlas/atlas-cli/internal/names"
	"github.com/chefatlas/atlas-cli/internal/store"
)

//go:embed data.yaml
var embedded []byte

// Dataset is the parsed seed file.
type Dataset struct {
	Chefs          []ChefSeed          `yaml:"chefs"`
	Seasons        []SeasonSeed        `yaml:"seasons"`
	Participations []ParticipationSeed `yaml:"participations"`
	Restaurants    []RestaurantSeed    `yaml:"restaurants"`
}

type ChefSeed struct {
	Name   string  `yaml:"name"`
	Status *string `yaml:"status"`
	Bio    *string `yaml:"bio"`
}

type SeasonSeed struct {
	Country      string  `yaml:"country"`
	Number       int     `yaml:"number"`
	Year         *int    `yaml:"year"`
	Title        *string `yaml:"title"`
	EpisodeCount *int    `yaml:"episodeCount"`
	Winner       *string `yaml:"winner"`
}

type ParticipationSeed struct {
	Chef               string  `yaml:"chef"`
	Country            string  `yaml:"country"`
	Season             int     `yaml:"season"`
	Placement          *int    `yaml:"placement"`
	IsWinner           bool    `yaml:"isWinner"`
	Eliminated         bool    `yaml:"eliminated"`
	EliminationEpisode *int    `yaml:"eliminationEpisode"`
	Notes              *string `yaml:"notes"`
}

type RestaurantSeed struct {
	Chef        string  `yaml:"chef"`
	Name        string  `yaml:"name"`
	Description *string `yaml:"description"`
	Lat         float64 `yaml:"lat"`
	Lng         float64 `yaml:"lng"`
	Address     *string `yaml:"address"`
	Country     string  `yaml:"country"`
	Season      *int    `yaml:"season"`
	City        string  `yaml:"city"`
	IsCurrent   bool    `yaml:"isCurrent"`
}

// Embedded parses the dataset compiled into the binary.
func Embedded() (*Dataset, error) {
	return Parse(embedded)
}

// Parse decodes a seed dataset from YAML.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, eris.Wrap(err, "seed: parse dataset")
	}
	return &ds, nil
}

// Result reports what a seeding run inserted or refreshed.
type Result struct {
	Chefs          int
	Seasons        int
	Participations int
	Restaurants    int
}

// poolStore is the optional fast path: a store backed by a pgx pool can take
// restaurants through a single bulk upsert instead of row-at-a-time inserts.
type poolStore interface {
	Pool() db.Pool
}

// Loader writes a Dataset through a Store.
type Loader struct {
	store store.Store
	log   *zap.Logger
}

// NewLoader creates a Loader.
func NewLoader(st store.Store) *Loader {
	return &Loader{store: st, log: zap.L()}
}

// Run seeds the database. Chefs and seasons are matched by their natural keys
// and only created when missing; participations upsert; restaurants bulk
// upsert on (chef, name) when the store exposes a pool.
func (l *Loader) Run(ctx context.Context, ds *Dataset) (*Result, error) {
	res := &Result{}
	now := time.Now().UTC()

	chefIDs := make(map[string]int, len(ds.Chefs))
	for _, cs := range ds.Chefs {
		chef, err := l.store.GetChefByName(ctx, cs.Name)
		if err != nil {
			return nil, err
		}
		if chef == nil {
			chef, err = l.store.CreateChef(ctx, model.Chef{
				Name:        cs.Name,
				Bio:         cs.Bio,
				Status:      cs.Status,
				LastUpdated: &now,
			})
			if err != nil {
				return nil, err
			}
			res.Chefs++
		}
		chefIDs[names.Normalize(cs.Name)] = chef.ID
	}

	seasonIDs := make(map[string]int, len(ds.Seasons))
	for _, ss := range ds.Seasons {
		season, err := l.store.GetSeasonByNumber(ctx, ss.Country, ss.Number)
		if err != nil {
			return nil, err
		}
		if season == nil {
			season, err = l.store.CreateSeason(ctx, model.Season{
				Country:      ss.Country,
				Number:       ss.Number,
				Year:         ss.Year,
				Title:        ss.Title,
				EpisodeCount: ss.EpisodeCount,
				WinnerName:   ss.Winner,
			})
			if err != nil {
				return nil, err
			}
			res.Seasons++
		}
		seasonIDs[seasonKey(ss.Country, ss.Number)] = season.ID
	}

	for _, ps := range ds.Participations {
		chefID, ok := chefIDs[names.Normalize(ps.Chef)]
		if !ok {
			return nil, eris.Errorf("seed: participation references unknown chef %q", ps.Chef)
		}
		seasonID, ok := seasonIDs[seasonKey(ps.Country, ps.Season)]
		if !ok {
			return nil, eris.Errorf("seed: participation references unknown season %s/%d", ps.Country, ps.Season)
		}
		if _, err := l.store.UpsertParticipation(ctx, model.Participation{
			ChefID:             chefID,
			SeasonID:           seasonID,
			Placement:          ps.Placement,
			IsWinner:           ps.IsWinner,
			Eliminated:         ps.Eliminated,
			EliminationEpisode: ps.EliminationEpisode,
			Notes:              ps.Notes,
		}); err != nil {
			return nil, err
		}
		res.Participations++
	}

	n, err := l.seedRestaurants(ctx, ds.Restaurants, chefIDs, seasonIDs, now)
	if err != nil {
		return nil, err
	}
	res.Restaurants = n

	l.log.Info("seed complete",
		zap.Int("chefs", res.Chefs),
		zap.Int("seasons", res.Seasons),
		zap.Int("participations", res.Participations),
		zap.Int("restaurants", res.Restaurants),
	)
	return res, nil
}

var restaurantSeedCols = []string{
	"chef_id", "name", "description", "lat", "lng", "address",
	"season_id", "city", "country", "is_current", "last_updated",
	"name_updated_at", "address_updated_at", "chef_association_updated_at",
}

func (l *Loader) seedRestaurants(ctx context.Context, seeds []RestaurantSeed, chefIDs map[string]int, seasonIDs map[string]int, now time.Time) (int, error) {
	type resolved struct {
		seed     RestaurantSeed
		chefID   int
		seasonID *int
	}
	items := make([]resolved, 0, len(seeds))
	for _, rs := range seeds {
		chefID, ok := chefIDs[names.Normalize(rs.Chef)]
		if !ok {
			return 0, eris.Errorf("seed: restaurant %q references unknown chef %q", rs.Name, rs.Chef)
		}
		item := resolved{seed: rs, chefID: chefID}
		if rs.Season != nil {
			seasonID, ok := seasonIDs[seasonKey(rs.Country, *rs.Season)]
			if !ok {
				return 0, eris.Errorf("seed: restaurant %q references unknown season %s/%d", rs.Name, rs.Country, *rs.Season)
			}
			item.seasonID = &seasonID
		}
		items = append(items, item)
	}

	if ps, ok := l.store.(poolStore); ok {
		rows := make([][]any, len(items))
		for i, it := range items {
			rows[i] = []any{
				it.chefID, it.seed.Name, it.seed.Description, it.seed.Lat, it.seed.Lng,
				it.seed.Address, it.seasonID, it.seed.City, it.seed.Country,
				it.seed.IsCurrent, now, now, now, now,
			}
		}
		affected, err := db.BulkUpsert(ctx, ps.Pool(), db.UpsertConfig{
			Table:        "restaurants",
			Columns:      restaurantSeedCols,
			ConflictKeys: []string{"chef_id", "name"},
		}, rows)
		if err != nil {
			return 0, err
		}
		return int(affected), nil
	}

	// Row-at-a-time fallback for stores without a pool (sqlite). Existing
	// (chef, name) pairs are skipped rather than refreshed.
	inserted := 0
	for _, it := range items {
		exists, err := l.restaurantExists(ctx, it.chefID, it.seed.Name)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}
		if _, err := l.store.CreateRestaurant(ctx, model.Restaurant{
			ChefID:                   it.chefID,
			Name:                     it.seed.Name,
			Description:              it.seed.Description,
			Lat:                      it.seed.Lat,
			Lng:                      it.seed.Lng,
			Address:                  it.seed.Address,
			SeasonID:                 it.seasonID,
			City:                     it.seed.City,
			Country:                  it.seed.Country,
			IsCurrent:                it.seed.IsCurrent,
			LastUpdated:              &now,
			NameUpdatedAt:            &now,
			AddressUpdatedAt:         &now,
			ChefAssociationUpdatedAt: &now,
		}); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (l *Loader) restaurantExists(ctx context.Context, chefID int, name string) (bool, error) {
	detail, err := l.store.GetChefDetail(ctx, chefID)
	if err != nil || detail == nil {
		return false, err
	}
	for _, r := range detail.Restaurants {
		if r.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func seasonKey(country string, number int) string {
	return fmt.Sprintf("%s/%d", country, number)
}
