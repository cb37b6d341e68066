package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prospector/internal/platform/config"
	"prospector/internal/platform/migrations"
	"prospector/internal/platform/postgres"
)

func newMigrateCmd(envFiles *[]string) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFiles...)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			ctx := cmd.Context()
			db, err := postgres.Open(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			if !status {
				if err := migrations.Up(ctx, db); err != nil {
					return err
				}
			}
			results, err := migrations.Status(ctx, db)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%-6d %-10s %s\n", r.Source.Version, r.State, r.Source.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "only print migration status")
	return cmd
}
