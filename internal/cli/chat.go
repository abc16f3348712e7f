package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"ai_receptionist/internal/core"
	"ai_receptionist/pkg"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the receptionist from the terminal",
	Long: `Start an interactive text conversation over the same pipeline the
gateway uses. Type "exit" or press Ctrl-D to leave.

Examples:
  receptionist chat
  receptionist chat --session front-desk-1`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id to resume")
}

// Theme holds the chat colors
type Theme struct {
	Caller lipgloss.Color
	Agent  lipgloss.Color
	Meta   lipgloss.Color
	Error  lipgloss.Color
}

var defaultTheme = Theme{
	Caller: lipgloss.Color("#5FAFD7"),
	Agent:  lipgloss.Color("#00D787"),
	Meta:   lipgloss.Color("#6C6C6C"),
	Error:  lipgloss.Color("#FF005F"),
}

func (t Theme) callerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Caller).Bold(true)
}

func (t Theme) agentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Agent)
}

func (t Theme) metaStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Meta).Italic(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, err := buildStack(ctx, cfg, profile)
	if err != nil {
		return err
	}
	defer s.Close()

	sessionID := chatSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return chatLoop(ctx, s.pipeline, sessionID, os.Stdin, cmd.OutOrStdout(), defaultTheme)
}

// turnRunner runs one text turn
type turnRunner interface {
	Execute(ctx context.Context, input core.ProcessorInput) (*core.ProcessorOutput, error)
}

// chatLoop reads one utterance per line until EOF or "exit"
func chatLoop(ctx context.Context, pipeline turnRunner, sessionID string, in io.Reader, out io.Writer, theme Theme) error {
	fmt.Fprintln(out, theme.metaStyle().Render(fmt.Sprintf("session %s", sessionID)))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, theme.callerStyle().Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		result, err := pipeline.Execute(ctx, core.ProcessorInput{SessionID: sessionID, Message: line})
		if err != nil {
			fmt.Fprintln(out, theme.errorStyle().Render("error: "+err.Error()))
			continue
		}

		fmt.Fprintln(out, theme.agentStyle().Render("receptionist> "+result.Reply))
		if result.Turn != nil {
			fmt.Fprintln(out, theme.metaStyle().Render(describeTurn(result.Turn)))
			if result.Turn.Intent == pkg.IntentGoodbye {
				return nil
			}
		}
	}
}

func describeTurn(turn *pkg.TurnResult) string {
	parts := []string{
		fmt.Sprintf("intent=%s (%.2f)", turn.Intent, turn.Confidence),
		fmt.Sprintf("phase=%s", turn.Phase),
	}
	if turn.ActionType != "" {
		parts = append(parts, fmt.Sprintf("action=%s", turn.ActionType))
	}
	if turn.RequiresAction {
		parts = append(parts, "requires_action")
	}
	if turn.Escalated {
		parts = append(parts, "escalated")
	}
	return strings.Join(parts, " ")
}
