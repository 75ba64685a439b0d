package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/chefatlas/atlas-cli/internal/config"
	"github.com/chefatlas/atlas-cli/internal/enrich"
	"github.com/chefatlas/atlas-cli/internal/store"
	"github.com/chefatlas/atlas-cli/pkg/openrouter"
	"github.com/chefatlas/atlas-cli/pkg/perplexity"
)

// openStore connects the configured database backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "atlas.db"
		}
		return store.NewSQLite(dsn)
	case "postgres", "":
		return store.NewPostgres(ctx, cfg.Store.DSN(), &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// newEnricher wires the provider clients and the orchestrator. Key presence
// is not checked here: the server degrades per request, batch commands call
// requireKeys first.
func newEnricher(st store.Store, cfg *config.Config) *enrich.Enricher {
	fetcher := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	)
	reasoner := openrouter.NewClient(cfg.OpenRouter.Key,
		openrouter.WithBaseURL(cfg.OpenRouter.BaseURL),
		openrouter.WithModel(cfg.OpenRouter.Model),
		openrouter.WithReferer(cfg.OpenRouter.SiteURL, cfg.OpenRouter.SiteName),
	)
	return enrich.New(st, fetcher, reasoner, cfg.Enrich)
}

// requireKeys makes missing provider credentials a fatal configuration error
// for the batch commands.
func requireKeys(cfg *config.Config) error {
	if cfg.Perplexity.Key == "" {
		return eris.New("PERPLEXITY_API_KEY is not set")
	}
	if cfg.OpenRouter.Key == "" {
		return eris.New("OPENROUTER_API_KEY is not set")
	}
	return nil
}
