// Package logger holds the process-wide zerolog logger.
//
// Call InitLogger once at startup, before any component is built. Components
// then take a tagged child logger and keep it:
//
//	log := logger.With("dialogue")
//	log.Info().Str("session_id", id).Msg("Turn processed")
//
// With copies the logger current at call time, so a child taken before
// InitLogger keeps writing JSON to stdout. One-off call sites without a
// component use the package-level Info, Debug, Warn and Error helpers.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai_receptionist/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the root logger; replaced by InitLogger
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// InitLogger applies LOG_* settings: level, time field format, destination
// (stdout, stderr or an appended file) and json or console encoding.
func InitLogger(cfg config.LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", cfg.Level, err)
	}

	output, err := openOutput(cfg)
	if err != nil {
		return err
	}
	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = timeFieldFormat(cfg.TimeFormat)

	Logger = zerolog.New(output).With().Timestamp().Caller().Logger()
	// libraries logging through zerolog/log land in the same sink
	log.Logger = Logger

	Logger.Debug().
		Str("level", level.String()).
		Str("format", cfg.Format).
		Str("output", cfg.Output).
		Msg("Logger initialized")
	return nil
}

func openOutput(cfg config.LogConfig) (io.Writer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr, nil
	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file '%s': %w", cfg.FilePath, err)
		}
		return file, nil
	default:
		return os.Stdout, nil
	}
}

func timeFieldFormat(name string) string {
	switch strings.ToLower(name) {
	case "unix":
		return zerolog.TimeFormatUnix
	case "iso8601":
		return "2006-01-02T15:04:05.000Z07:00"
	default:
		return time.RFC3339
	}
}

// With returns a child logger whose events carry component=<name>.
// Constructors call it once; dialogue and nlu also take an override through
// their WithLogger options, e.g. dialogue.WithLogger(zerolog.Nop()).
func With(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

func Info() *zerolog.Event  { return Logger.Info() }
func Debug() *zerolog.Event { return Logger.Debug() }
func Warn() *zerolog.Event  { return Logger.Warn() }
func Error() *zerolog.Event { return Logger.Error() }
