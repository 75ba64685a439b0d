package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chefatlas/atlas-cli/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily backfill scheduler",
	Long:  "Stays resident and runs a full country-wide update pass on the configured cron spec (default 02:00 daily).",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireKeys(cfg); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		enricher := newEnricher(st, cfg)

		sched, err := scheduler.New(st, enricher, cfg.Enrich.BackfillCron)
		if err != nil {
			return err
		}

		sched.Start()
		zap.L().Info("scheduler running", zap.String("cron", cfg.Enrich.BackfillCron))

		<-ctx.Done()
		<-sched.Stop().Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
