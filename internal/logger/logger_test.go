package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai_receptionist/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	t.Run("rejects unknown level", func(t *testing.T) {
		err := InitLogger(config.LogConfig{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("writes to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "app.log")
		require.NoError(t, InitLogger(config.LogConfig{
			Level:    "info",
			Format:   "json",
			Output:   "file",
			FilePath: path,
		}))

		With("test").Info().Str("session_id", "abc").Msg("hello")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"session_id":"abc"`)
		assert.Contains(t, string(data), `"component":"test"`)
	})

	t.Run("unix timestamps", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		require.NoError(t, InitLogger(config.LogConfig{
			Level:      "debug",
			Output:     "file",
			FilePath:   path,
			TimeFormat: "unix",
		}))
		t.Cleanup(func() { zerolog.TimeFieldFormat = time.RFC3339 })

		Info().Msg("tick")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Regexp(t, `"time":\d+`, string(data))
	})

	t.Run("child keeps the sink it was taken from", func(t *testing.T) {
		first := filepath.Join(t.TempDir(), "first.log")
		require.NoError(t, InitLogger(config.LogConfig{Level: "info", Output: "file", FilePath: first}))
		early := With("early")

		second := filepath.Join(t.TempDir(), "second.log")
		require.NoError(t, InitLogger(config.LogConfig{Level: "info", Output: "file", FilePath: second}))
		early.Info().Msg("still here")
		With("late").Info().Msg("moved")

		data, err := os.ReadFile(first)
		require.NoError(t, err)
		assert.Contains(t, string(data), "still here")
		assert.NotContains(t, string(data), "moved")

		data, err = os.ReadFile(second)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"component":"late"`)
	})
}
