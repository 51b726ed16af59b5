package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"voicebot/core"
)

// systemPrompt is prepended to every completion. It constrains reply length
// and tone so answers stay speakable.
const systemPrompt = "You are a helpful voice assistant. Give short, direct answers in 2-3 sentences maximum. Never repeat yourself."

// Config holds the configuration for the Groq service
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	MaxTokens        int
	Temperature      float32
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
}

// DefaultConfig returns a Config with sensible defaults. Max tokens are kept
// low so spoken answers stay short; the penalties discourage repetition.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "https://api.groq.com/openai/v1",
		Model:            "llama-3.3-70b-versatile",
		MaxTokens:        150,
		Temperature:      0.7,
		TopP:             0.9,
		FrequencyPenalty: 0.5,
		PresencePenalty:  0.3,
	}
}

// GroqLLMService produces chat completions through Groq's OpenAI-compatible
// API.
type GroqLLMService struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

// NewGroqLLMService creates a new instance of GroqLLMService.
// Use DefaultConfig() to get a config with sensible defaults and override only what you need.
func NewGroqLLMService(config Config, logger *core.Logger) *GroqLLMService {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL

	return &GroqLLMService{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}
}

// Initialize validates the service configuration.
func (s *GroqLLMService) Initialize(ctx context.Context) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("Groq API key is required")
	}
	return nil
}

// Complete runs a single chat completion. The fixed system instruction is
// always the first message; history is forwarded as given, so the caller is
// responsible for capping it.
func (s *GroqLLMService) Complete(ctx context.Context, message string, history []core.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:            s.config.Model,
		Messages:         s.buildMessages(message, history),
		MaxTokens:        s.config.MaxTokens,
		Temperature:      s.config.Temperature,
		TopP:             s.config.TopP,
		FrequencyPenalty: s.config.FrequencyPenalty,
		PresencePenalty:  s.config.PresencePenalty,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// buildMessages assembles the outbound message list: system instruction,
// prior history, then the new user message.
func (s *GroqLLMService) buildMessages(message string, history []core.Message) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    convertRole(msg.Role),
			Content: msg.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
	return messages
}

// convertRole converts core role to OpenAI role
func convertRole(role core.Role) string {
	switch role {
	case core.RoleUser:
		return openai.ChatMessageRoleUser
	case core.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case core.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
