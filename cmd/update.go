package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var updateCountry string

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run a batch refresh pass",
	Long:  "Backfills season rosters and refreshes stale restaurant fields. With --country, runs one country; otherwise every country in the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireKeys(cfg); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		enricher := newEnricher(st, cfg)

		countries := []string{updateCountry}
		if updateCountry == "" {
			countries, err = st.GetCountries(ctx)
			if err != nil {
				return err
			}
		}

		for _, country := range countries {
			summary, err := enricher.UpdateCountry(ctx, country)
			if err != nil {
				zap.L().Error("country update failed", zap.String("country", country), zap.Error(err))
				continue
			}
			zap.L().Info("country updated",
				zap.String("country", country),
				zap.Int("seasons_checked", summary.SeasonsChecked),
				zap.Int("candidates_added", summary.CandidatesAdded),
				zap.Int("restaurants_refreshed", summary.RestaurantsRefreshed),
				zap.Int("restaurants_filled", summary.RestaurantsFilled),
			)
		}
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateCountry, "country", "", "limit the pass to one country")
	rootCmd.AddCommand(updateCmd)
}
