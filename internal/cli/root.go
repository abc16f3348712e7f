// Package cli provides the command-line interface for the receptionist.
package cli

import (
	"fmt"

	"ai_receptionist/internal/config"
	"ai_receptionist/internal/logger"
	"ai_receptionist/pkg"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	cfg     *config.Config
	profile pkg.BusinessProfile
)

var rootCmd = &cobra.Command{
	Use:   "receptionist",
	Short: "Voice receptionist dialogue service",
	Long: `Receptionist answers business calls: it classifies each utterance,
fills booking slots across turns, books and cancels appointments, and
answers open questions with a language model when one is configured.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := logger.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		profile, err = config.LoadBusinessProfile(cfg.BusinessProfile)
		if err != nil {
			return fmt.Errorf("load business profile: %w", err)
		}
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(migrateCmd)
}
