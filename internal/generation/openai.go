package generation

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/models"
)

// OpenAIProvider calls the chat completions API of OpenAI or a compatible gateway.
type OpenAIProvider struct {
	client *openai.Client
	cfg    Config
}

// NewOpenAIProvider requires an API key.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "new_generator", "openai generation provider requires an API key")
	}
	cfg = cfg.withDefaults()
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

// GenerateResponse sends prompt as a single user message.
func (p *OpenAIProvider) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	return p.GenerateChatHistoryResponse(ctx, userPrompt(prompt))
}

// GenerateChatHistoryResponse sends the history, led by the system prompt when configured.
func (p *OpenAIProvider) GenerateChatHistoryResponse(ctx context.Context, history []models.Message) (string, error) {
	messages, err := prepareMessages(p.cfg.SystemPrompt, history, p.cfg.MaxInputTokens)
	if err != nil {
		return "", err
	}
	req := openai.ChatCompletionRequest{
		Model:       p.cfg.ModelID,
		MaxTokens:   p.cfg.MaxOutputTokens,
		Temperature: float32(p.cfg.Temperature),
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apperr.Provider("openai_chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", emptyChoices("openai_chat")
	}
	return resp.Choices[0].Message.Content, nil
}
