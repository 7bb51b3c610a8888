package main

import (
	"fmt"

	"github.com/property-portfolio/internal/logging"
	"github.com/property-portfolio/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := newMigrator()
				if err != nil {
					return err
				}

				logging.Info("Running Postgres migrations...")
				if err := m.Up(); err != nil {
					return err
				}
				logging.Info("Postgres migrations completed successfully")
				return nil
			},
		},
		migrateDownCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := newMigrator()
				if err != nil {
					return err
				}

				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %v)\n", version, dirty)
				return nil
			},
		},
	)

	return cmd
}

func migrateDownCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}

			m, err := newMigrator()
			if err != nil {
				return err
			}

			logging.Infof("Rolling back %d Postgres migration(s)...", steps)
			if err := m.Down(steps); err != nil {
				return err
			}
			logging.Info("Postgres migrations rolled back successfully")
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newMigrator() (*storage.Migrator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return storage.NewMigrator(cfg.Database.Postgres.DatabaseURL(), cfg.Migrations.Path), nil
}
