package cli

import (
	"context"
	"fmt"
	"time"

	"ai_receptionist/internal/storage"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the Postgres schema",
	Long: `Create the calls, appointments and leads tables in the database
named by POSTGRES_DSN. Safe to run repeatedly.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("POSTGRES_DSN is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := storage.NewPostgresStore(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
	return nil
}
