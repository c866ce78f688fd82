package generation

import (
	"context"

	"github.com/ollama/ollama/api"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/embedding"
	"github.com/hyperjump/ragpipe/internal/models"
)

// OllamaProvider calls an Ollama server's /api/chat endpoint without streaming.
type OllamaProvider struct {
	client *api.Client
	cfg    Config
}

// NewOllamaProvider needs no credential.
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	cfg = cfg.withDefaults()
	client, err := embedding.NewOllamaClient(cfg.BaseURL, cfg.HTTPClient)
	if err != nil {
		return nil, err
	}
	return &OllamaProvider{client: client, cfg: cfg}, nil
}

// GenerateResponse sends prompt as a single user message.
func (p *OllamaProvider) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	return p.GenerateChatHistoryResponse(ctx, userPrompt(prompt))
}

// GenerateChatHistoryResponse sends the history, led by the system prompt when configured.
func (p *OllamaProvider) GenerateChatHistoryResponse(ctx context.Context, history []models.Message) (string, error) {
	messages, err := prepareMessages(p.cfg.SystemPrompt, history, p.cfg.MaxInputTokens)
	if err != nil {
		return "", err
	}
	stream := false
	req := &api.ChatRequest{
		Model:    p.cfg.ModelID,
		Messages: make([]api.Message, len(messages)),
		Stream:   &stream,
		Options: map[string]any{
			"temperature": p.cfg.Temperature,
			"num_predict": p.cfg.MaxOutputTokens,
		},
	}
	for i, m := range messages {
		req.Messages[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}
	var answer string
	err = p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		answer += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", apperr.Provider("ollama_chat", err)
	}
	return answer, nil
}
