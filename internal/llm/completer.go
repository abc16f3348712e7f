package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai_receptionist/internal/config"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Completer is the generative completion collaborator
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// ErrEmptyCompletion is returned when the model answers with no text
var ErrEmptyCompletion = errors.New("empty completion")

// EinoCompleter runs prompts through an eino chain: ChatTemplate -> ChatModel
type EinoCompleter struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
}

// NewEinoCompleter compiles the completion chain around a chat model
func NewEinoCompleter(ctx context.Context, cm model.BaseChatModel, timeout time.Duration) (*EinoCompleter, error) {
	if cm == nil {
		return nil, errors.New("chat model cannot be nil")
	}

	template := prompt.FromMessages(schema.FString, schema.UserMessage("{prompt}"))

	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(template).
		AppendChatModel(cm).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating completion chain: %w", err)
	}

	return &EinoCompleter{chain: chain, timeout: timeout}, nil
}

// Complete sends one prompt with per-call sampling parameters
func (c *EinoCompleter) Complete(ctx context.Context, text string, maxTokens int, temperature float64) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.chain.Invoke(ctx, map[string]any{"prompt": text},
		compose.WithChatModelOption(
			model.WithMaxTokens(maxTokens),
			model.WithTemperature(float32(temperature)),
		))
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", ErrEmptyCompletion
	}

	return strings.TrimSpace(msg.Content), nil
}

// NewFromConfig wires a completer from config. It returns a nil Completer when
// the provider has no credentials; generative paths then degrade to fallbacks.
func NewFromConfig(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	cm, err := NewChatModel(ctx, cfg)
	if errors.Is(err, ErrNotConfigured) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	completer, err := NewEinoCompleter(ctx, cm, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return completer, nil
}
