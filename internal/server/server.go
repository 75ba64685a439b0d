// Package server exposes the atlas REST API: entity reads, manual edits, and
// the enrichment-triggering panel and update endpoints.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/chefatlas/atlas-cli/internal/enrich"
	"github.com/chefatlas/atlas-cli/internal/model"
	"github.com/chefatlas/atlas-cli/internal/store"
)

// Enrichment is the orchestrator surface the handlers call.
type Enrichment interface {
	PanelData(ctx context.Context, id int) (*model.PanelData, error)
	ChefInfo(ctx context.Context, chefName, restaurantName string) (string, error)
	FillMissingFields(ctx context.Context, id int) (*model.Restaurant, error)
	UpdateCountry(ctx context.Context, country string) (*enrich.UpdateSummary, error)
}

// Server holds the API dependencies.
type Server struct {
	store    store.Store
	enricher Enrichment
	log      *zap.Logger
}

// New creates a Server.
func New(st store.Store, e Enrichment) *Server {
	return &Server{store: st, enricher: e, log: zap.L()}
}

// Router builds the chi router with middleware and all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/countries", s.handleCountries)

		r.Get("/restaurants", s.handleListRestaurants)
		r.Get("/restaurants/{id}", s.handleGetRestaurant)
		r.Put("/restaurants/{id}", s.handleUpdateRestaurant)
		r.Post("/restaurants/{id}/fill-missing-fields", s.handleFillMissingFields)

		r.Get("/chefs/{id}", s.handleGetChef)
		r.Put("/chefs/{id}", s.handleUpdateChef)
		r.Get("/chef-info", s.handleChefInfo)

		r.Get("/seasons/country/{country}", s.handleSeasonsByCountry)

		r.Get("/restaurant-panel-data/{id}", s.handlePanelData)
		r.Post("/update-data", s.handleUpdateData)
	})

	return r
}
