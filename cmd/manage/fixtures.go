package main

import (
	"fmt"

	"github.com/property-portfolio/internal/fixtures"
	"github.com/property-portfolio/internal/logging"
	"github.com/property-portfolio/internal/storage"
	"github.com/spf13/cobra"
)

func generateFixturesCmd() *cobra.Command {
	var opts fixtures.Options

	cmd := &cobra.Command{
		Use:   "generate-fixtures",
		Short: "Create demo portfolios and properties across Europe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := storage.NewPostgresDB(&cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := logging.WithLogger(cmd.Context(), logging.GetGlobalLogger())
			generator := fixtures.NewGenerator(storage.NewPortfolioRepository(db), storage.NewPropertyRepository(db))

			result, err := generator.Generate(ctx, opts)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Successfully created %d portfolios and %d properties across Europe (seed %d)\n",
				result.Portfolios, result.Properties, result.Seed)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed; 0 picks one")
	cmd.Flags().IntVar(&opts.Norwegian, "norwegian", fixtures.DefaultNorwegian, "number of Norwegian properties")
	cmd.Flags().IntVar(&opts.European, "european", fixtures.DefaultEuropean, "number of other European properties")
	return cmd
}
