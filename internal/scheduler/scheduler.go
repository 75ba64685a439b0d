// Package scheduler runs the daily batch update over every known country.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chefatlas/atlas-cli/internal/enrich"
	"github.com/chefatlas/atlas-cli/internal/store"
)

// Updater is the batch surface the scheduler drives.
type Updater interface {
	UpdateCountry(ctx context.Context, country string) (*enrich.UpdateSummary, error)
}

// Scheduler triggers a country-wide update pass on a cron spec.
type Scheduler struct {
	store    store.Store
	enricher Updater
	cron     *cron.Cron
	log      *zap.Logger
}

// New creates a Scheduler and registers the job. spec uses standard five-field
// cron syntax, e.g. "0 2 * * *" for 02:00 daily.
func New(st store.Store, e Updater, spec string) (*Scheduler, error) {
	s := &Scheduler{
		store:    st,
		enricher: e,
		cron:     cron.New(),
		log:      zap.L(),
	}
	if _, err := s.cron.AddFunc(spec, func() {
		s.RunOnce(context.Background())
	}); err != nil {
		return nil, eris.Wrapf(err, "scheduler: invalid cron spec %q", spec)
	}
	return s, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts the cron loop and returns a context that is done once any
// in-flight job finishes.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// RunOnce executes one full pass over all countries. Per-country failures are
// logged and the pass continues.
func (s *Scheduler) RunOnce(ctx context.Context) {
	countries, err := s.store.GetCountries(ctx)
	if err != nil {
		s.log.Error("scheduler: list countries failed", zap.Error(err))
		return
	}
	for _, country := range countries {
		summary, err := s.enricher.UpdateCountry(ctx, country)
		if err != nil {
			s.log.Error("scheduler: country update failed",
				zap.String("country", country), zap.Error(err))
			continue
		}
		s.log.Info("scheduler: country updated",
			zap.String("country", country),
			zap.Int("seasons_checked", summary.SeasonsChecked),
			zap.Int("candidates_added", summary.CandidatesAdded),
			zap.Int("restaurants_refreshed", summary.RestaurantsRefreshed),
		)
	}
}
