package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/EventDrop/internal/config"
	"github.com/dharsanguruparan/EventDrop/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			version, err := database.Migrate(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}
