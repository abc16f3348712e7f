package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"ai_receptionist/internal/config"
	"ai_receptionist/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Session.Backend = "memory"
	c.LLM.Provider = "openai"
	c.ArchiveDir = t.TempDir()
	return c
}

func TestBuildStack_MemoryDefaults(t *testing.T) {
	s, err := buildStack(context.Background(), testConfig(t), pkg.DefaultBusinessProfile())
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.engine)
	assert.NotNil(t, s.pipeline)
	assert.NotNil(t, s.scheduler)
	assert.NotNil(t, s.archive)
}

func TestBuildStack_UnknownBackend(t *testing.T) {
	c := testConfig(t)
	c.Session.Backend = "etcd"

	_, err := buildStack(context.Background(), c, pkg.DefaultBusinessProfile())
	assert.ErrorContains(t, err, "unknown session backend")
}

func TestChatLoop(t *testing.T) {
	s, err := buildStack(context.Background(), testConfig(t), pkg.DefaultBusinessProfile())
	require.NoError(t, err)
	defer s.Close()

	in := strings.NewReader("Hello\n\nWhat are your business hours?\nGoodbye\nnever read\n")
	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), s.pipeline, "cli-1", in, &out, defaultTheme))

	text := out.String()
	assert.Contains(t, text, "session cli-1")
	assert.Contains(t, text, "intent=greeting")
	assert.Contains(t, text, "intent=business_hours")
	assert.Contains(t, text, "phase=completed")

	info, err := s.engine.SessionInfo(context.Background(), "cli-1")
	require.NoError(t, err)
	assert.Equal(t, 3, info.ConversationLength)
}

func TestChatLoop_ExitAndEOF(t *testing.T) {
	s, err := buildStack(context.Background(), testConfig(t), pkg.DefaultBusinessProfile())
	require.NoError(t, err)
	defer s.Close()

	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), s.pipeline, "cli-2", strings.NewReader("exit\n"), &out, defaultTheme))
	_, err = s.engine.SessionInfo(context.Background(), "cli-2")
	assert.ErrorIs(t, err, pkg.ErrSessionNotFound)

	out.Reset()
	require.NoError(t, chatLoop(context.Background(), s.pipeline, "cli-3", strings.NewReader("Hello"), &out, defaultTheme))
	assert.Contains(t, out.String(), "intent=greeting")
}

func TestDescribeTurn(t *testing.T) {
	turn := &pkg.TurnResult{
		Intent:         pkg.IntentAppointmentBooking,
		Confidence:     0.8,
		Phase:          pkg.PhaseConfirming,
		ActionType:     pkg.ActionType("book_appointment"),
		RequiresAction: true,
	}
	assert.Equal(t, "intent=appointment_booking (0.80) phase=confirming action=book_appointment requires_action", describeTurn(turn))
}
