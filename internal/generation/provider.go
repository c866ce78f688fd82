// Package generation produces answers from large language models.
package generation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/config"
	"github.com/hyperjump/ragpipe/internal/embedding"
	"github.com/hyperjump/ragpipe/internal/models"
)

// Provider generates text from a prompt or a chat history.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
	GenerateChatHistoryResponse(ctx context.Context, history []models.Message) (string, error)
}

// ProviderID identifies a generation backend.
type ProviderID string

const (
	ProviderOpenAI ProviderID = "openai"
	ProviderOllama ProviderID = "ollama"
)

// Default generation settings.
const (
	DefaultModel           = "gpt-4-turbo"
	DefaultMaxInputTokens  = 4096
	DefaultMaxOutputTokens = 512
	DefaultTemperature     = 0.1
)

// Config configures a provider. Credentials are held in memory only.
type Config struct {
	ModelID         string
	APIKey          string
	BaseURL         string
	SystemPrompt    string
	MaxInputTokens  int
	MaxOutputTokens int
	Temperature     float64
	HTTPClient      *http.Client
}

// ConfigFrom converts the file configuration and a credential.
func ConfigFrom(c config.GenerationConfig, apiKey string) Config {
	return Config{
		ModelID:         c.ModelID,
		APIKey:          apiKey,
		BaseURL:         c.BaseURL,
		SystemPrompt:    c.SystemPrompt,
		MaxInputTokens:  c.MaxInputTokens,
		MaxOutputTokens: c.MaxOutputTokens,
		Temperature:     c.Temperature,
	}
}

func (c Config) withDefaults() Config {
	if c.ModelID == "" {
		c.ModelID = DefaultModel
	}
	if c.MaxInputTokens <= 0 {
		c.MaxInputTokens = DefaultMaxInputTokens
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return c
}

// NewProvider creates the provider for id. An unknown id yields a nil Provider
// and an InvalidArgument error.
func NewProvider(id ProviderID, cfg Config) (Provider, error) {
	switch id {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderOllama:
		return NewOllamaProvider(cfg)
	}
	return nil, apperr.New(apperr.KindInvalidArgument, "new_generator",
		"unknown generation provider %q (supported: openai, ollama)", id)
}

// prepareMessages prepends the system prompt, checks roles and enforces the
// combined input token limit.
func prepareMessages(systemPrompt string, history []models.Message, maxInputTokens int) ([]models.Message, error) {
	if len(history) == 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "generate", "chat history is empty")
	}
	if err := models.ValidateHistory(history); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidArgument, "generate", err)
	}
	messages := make([]models.Message, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, models.Message{Role: models.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, history...)

	total := 0
	for _, m := range messages {
		total += embedding.CountTokens(m.Content)
	}
	if maxInputTokens > 0 && total > maxInputTokens {
		return nil, apperr.New(apperr.KindTokenLimitExceeded, "generate",
			"messages have %d tokens, exceeding the max_input_tokens limit of %d", total, maxInputTokens)
	}
	return messages, nil
}

func userPrompt(prompt string) []models.Message {
	return []models.Message{{Role: models.RoleUser, Content: prompt}}
}

func emptyChoices(op string) error {
	return apperr.Provider(op, fmt.Errorf("response contained no choices"))
}
