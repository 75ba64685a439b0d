package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chefatlas/atlas-cli/internal/seed"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the starter dataset",
	Long:  "Applies the schema and loads the embedded starter dataset, or a dataset file given with --file. Seeding is idempotent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		ds, err := loadDataset()
		if err != nil {
			return err
		}

		res, err := seed.NewLoader(st).Run(ctx, ds)
		if err != nil {
			return err
		}

		zap.L().Info("seeded",
			zap.Int("chefs", res.Chefs),
			zap.Int("seasons", res.Seasons),
			zap.Int("participations", res.Participations),
			zap.Int("restaurants", res.Restaurants),
		)
		return nil
	},
}

func loadDataset() (*seed.Dataset, error) {
	if seedFile == "" {
		return seed.Embedded()
	}
	data, err := os.ReadFile(seedFile)
	if err != nil {
		return nil, eris.Wrapf(err, "read seed file %s", seedFile)
	}
	return seed.Parse(data)
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "seed dataset file (default: embedded dataset)")
	rootCmd.AddCommand(seedCmd)
}
