package store

import (
	"context"
	"time"

	"github.com/chefatlas/atlas-cli/internal/model"
)

// RestaurantFilter specifies criteria for listing restaurants. Season filters
// by season number within the country, not by season id.
type RestaurantFilter struct {
	Country string
	Season  int // 0 = all seasons
}

// Store defines the persistence interface for the atlas. Get methods return
// (nil, nil) when the entity does not exist.
type Store interface {
	// Restaurants
	GetRestaurant(ctx context.Context, id int) (*model.Restaurant, error)
	GetRestaurantDetail(ctx context.Context, id int) (*model.RestaurantDetail, error)
	ListRestaurants(ctx context.Context, filter RestaurantFilter) ([]model.RestaurantWithContext, error)
	ListRestaurantsMissingAddress(ctx context.Context, country string) ([]model.Restaurant, error)
	CreateRestaurant(ctx context.Context, r model.Restaurant) (*model.Restaurant, error)
	UpdateRestaurant(ctx context.Context, id int, upd model.RestaurantUpdate) (*model.Restaurant, error)

	// Per-field enrichment writes. Each is an independent statement; the
	// orchestrator deliberately does not wrap them in a transaction.
	SetRestaurantName(ctx context.Context, id int, name string, at time.Time) error
	SetRestaurantAddress(ctx context.Context, id int, address *string, at time.Time) error
	SetRestaurantChef(ctx context.Context, id, chefID int, at time.Time) error
	TouchRestaurantField(ctx context.Context, id int, field model.Field, at time.Time) error

	// Chefs
	GetChef(ctx context.Context, id int) (*model.Chef, error)
	GetChefByName(ctx context.Context, name string) (*model.Chef, error)
	GetChefDetail(ctx context.Context, id int) (*model.ChefDetail, error)
	CreateChef(ctx context.Context, c model.Chef) (*model.Chef, error)
	UpdateChef(ctx context.Context, id int, upd model.ChefUpdate) (*model.Chef, error)
	SetChefBio(ctx context.Context, id int, bio *string, at time.Time) error

	// Seasons
	GetSeason(ctx context.Context, id int) (*model.Season, error)
	GetSeasonByNumber(ctx context.Context, country string, number int) (*model.Season, error)
	ListSeasonsByCountry(ctx context.Context, country string) ([]model.Season, error)
	CreateSeason(ctx context.Context, s model.Season) (*model.Season, error)

	// Participations
	CountParticipants(ctx context.Context, seasonID int) (int, error)
	UpsertParticipation(ctx context.Context, p model.Participation) (*model.Participation, error)

	// Countries
	GetCountries(ctx context.Context) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
