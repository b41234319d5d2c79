package backend

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/LiboWorks/task-automator/internal/config"
)

// OpenAIBackend implements LLMBackend using the OpenAI API.
type OpenAIBackend struct {
	client       *openai.Client
	defaultModel string
	jsonOnly     bool
}

// OpenAIConfig holds configuration for the OpenAI backend.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // Optional: for Azure or compatible APIs
	DefaultModel string

	// JSONResponses asks the model for a single JSON object per completion.
	JSONResponses bool
}

// NewOpenAIBackend creates a new OpenAI backend. Empty fields fall back to
// the global configuration.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	globalCfg := config.Get().OpenAI

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = globalCfg.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY, AUTOMATOR_OPENAI_API_KEY or openai.api_key)")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = globalCfg.BaseURL
	}
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = globalCfg.Model
	}

	return &OpenAIBackend{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: defaultModel,
		jsonOnly:     cfg.JSONResponses,
	}, nil
}

// FromConfig maps the application OpenAI settings.
func FromConfig(c config.OpenAIConfig) OpenAIConfig {
	return OpenAIConfig{APIKey: c.APIKey, BaseURL: c.BaseURL, DefaultModel: c.Model}
}

// Generate implements LLMBackend.
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string, model string, maxTokens int) (string, error) {
	if model == "" {
		model = b.defaultModel
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if b.jsonOnly {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Name implements LLMBackend.
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Close implements LLMBackend.
func (b *OpenAIBackend) Close() error {
	return nil
}
