package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ai_receptionist/internal/logger"
	"ai_receptionist/internal/transport/httpapi"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket gateway",
	Long: `Run the receptionist gateway with the session expiry sweeper.

Examples:
  receptionist serve
  receptionist serve --addr :9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := buildStack(ctx, cfg, profile)
	if err != nil {
		return err
	}
	defer s.Close()

	go s.engine.RunExpirySweeper(ctx, cfg.Session.SweepInterval, cfg.Session.MaxAge)

	httpCfg := cfg.HTTP
	if serveAddr != "" {
		httpCfg.Addr = serveAddr
	}

	server := httpapi.NewServer(httpapi.Deps{
		Pipeline:       s.pipeline,
		Sessions:       s.engine,
		Availability:   s.scheduler,
		Archive:        s.archive,
		MaxUploadBytes: cfg.Speech.MaxUploadBytes,
	})

	logger.Info().
		Str("business", profile.Name).
		Str("session_backend", cfg.Session.Backend).
		Msg("Receptionist starting")
	return server.Run(ctx, httpCfg)
}
