package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// RenderPrompt formats an FString template into a single prompt string.
// Variable values are substituted verbatim, braces inside them are not parsed.
func RenderPrompt(ctx context.Context, template string, vars map[string]any) (string, error) {
	tpl := prompt.FromMessages(schema.FString, schema.UserMessage(template))

	messages, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("error formatting prompt: %w", err)
	}

	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(msg.Content)
	}
	return b.String(), nil
}
