package cli

import (
	"context"
	"fmt"
	"time"

	"ai_receptionist/internal/storage"

	"github.com/spf13/cobra"
)

var sweepMaxAge time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire idle sessions once",
	Long: `Remove sessions idle for longer than --max-age from the configured
session store. Useful with the redis backend from a cron job.

Examples:
  receptionist sweep
  receptionist sweep --max-age 2h`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepMaxAge, "max-age", 0, "idle age to expire (defaults to SESSION_MAX_AGE)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer closeStore()

	maxAge := sweepMaxAge
	if maxAge <= 0 {
		maxAge = cfg.Session.MaxAge
	}
	if maxAge <= 0 {
		maxAge = storage.DefaultMaxAge
	}

	expired, err := store.ExpireOlderThan(ctx, maxAge)
	if err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Expired %d sessions idle for more than %s\n", len(expired), maxAge)
	for _, id := range expired {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
	}
	return nil
}
