package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ai_receptionist/internal/config"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	ollamaapi "github.com/ollama/ollama/api"
)

// Supported providers for LLM_PROVIDER
const (
	ProviderOpenAI   = "openai"
	ProviderArk      = "ark"
	ProviderDeepSeek = "deepseek"
	ProviderOllama   = "ollama"
)

// ErrNotConfigured is returned when a hosted provider has no API key
var ErrNotConfigured = errors.New("llm provider not configured")

// NewChatModel creates the eino chat model for the configured provider
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	maxTokens := cfg.MaxTokens
	temperature := float32(cfg.Temperature)

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "openrouter":
		if cfg.APIKey == "" {
			return nil, ErrNotConfigured
		}
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Timeout:     cfg.Timeout,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating openai chat model: %w", err)
		}
		return cm, nil

	case ProviderArk:
		if cfg.APIKey == "" {
			return nil, ErrNotConfigured
		}
		timeout := cfg.Timeout
		cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Timeout:     &timeout,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ark chat model: %w", err)
		}
		return cm, nil

	case ProviderDeepSeek:
		if cfg.APIKey == "" {
			return nil, ErrNotConfigured
		}
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Timeout:     cfg.Timeout,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating deepseek chat model: %w", err)
		}
		return cm, nil

	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" || strings.Contains(baseURL, "openrouter.ai") {
			baseURL = "http://localhost:11434"
		}
		cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Options: &ollamaapi.Options{
				Temperature: temperature,
				NumPredict:  maxTokens,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ollama chat model: %w", err)
		}
		return cm, nil
	}

	return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
}
