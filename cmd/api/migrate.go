package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mandadito/backend/internal/execution"
	"github.com/mandadito/backend/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  "Applies the application schema and River's job tables. The file store needs no migrations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.migrate(cmd.Context())
	},
}

func (a *app) migrate(ctx context.Context) error {
	pg, ok := a.backend.(*repository.Postgres)
	if !ok {
		return nil
	}
	applied, err := pg.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	a.log.Info("schema migrations applied", "applied", applied)
	if err := execution.MigrateRiver(ctx, a.pool); err != nil {
		return err
	}
	a.log.Info("river migrations applied")
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
