package backend

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/DomeenoH/MuMuAINovel/internal/config"
)

// OpenAIBackend implements LLMBackend using the OpenAI chat completion API.
type OpenAIBackend struct {
	client       *openai.Client
	defaultModel string
}

// OpenAIConfig holds configuration for the OpenAI backend.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // Optional: for Azure or compatible APIs
	DefaultModel string
}

// NewOpenAIBackend creates a new OpenAI backend. Empty fields fall back to
// the global configuration.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	globalCfg := config.Get()

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = globalCfg.OpenAI.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY or pass in config)")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = globalCfg.OpenAI.BaseURL
	}
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = globalCfg.OpenAI.Model
	}

	return &OpenAIBackend{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: defaultModel,
	}, nil
}

// Stream implements LLMBackend.
func (b *OpenAIBackend) Stream(ctx context.Context, req Request) (Stream, error) {
	model := req.Model
	if model == "" {
		model = b.defaultModel
	}

	creq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, len(req.Messages)),
		Stream:   true,
	}
	for i, m := range req.Messages {
		creq.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	if req.MaxTokens > 0 {
		creq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		creq.Temperature = req.Temperature
	}

	s, err := b.client.CreateChatCompletionStream(ctx, creq)
	if err != nil {
		return nil, fmt.Errorf("openai stream failed: %w", err)
	}
	return &openAIStream{stream: s}, nil
}

// Name implements LLMBackend.
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Close implements LLMBackend.
func (b *OpenAIBackend) Close() error {
	return nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
