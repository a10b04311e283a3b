package oracle

import (
	"context"
	"net/http"

	"github.com/cloudwego/eino-ext/components/model/openrouter"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-errors/errors"

	llmconfig "github.com/strrl/logmend/pkg/config"
)

// Config holds configuration for the OpenRouter-backed client.
type Config struct {
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// OpenRouterClient implements Client on top of the OpenRouter chat API.
type OpenRouterClient struct {
	chatModel model.BaseChatModel
}

// NewOpenRouterClient creates a client for the configured model. The model
// name falls back to the MODEL_NAME environment variable, then the default.
func NewOpenRouterClient(ctx context.Context, config Config) (*OpenRouterClient, error) {
	chatModel, err := openrouter.NewChatModel(ctx, &openrouter.Config{
		APIKey:     config.APIKey,
		Model:      llmconfig.ResolveModel(config.Model),
		HTTPClient: config.HTTPClient,
	})
	if err != nil {
		return nil, errors.Errorf("create chat model: %w", err)
	}
	return &OpenRouterClient{chatModel: chatModel}, nil
}

// Query sends one prompt and returns the raw completion text.
func (c *OpenRouterClient) Query(ctx context.Context, req QueryRequest) (string, error) {
	var messages []*schema.Message
	if req.SystemPrompt != "" {
		messages = append(messages, &schema.Message{Role: schema.System, Content: req.SystemPrompt})
	}
	messages = append(messages, &schema.Message{Role: schema.User, Content: req.Prompt})

	resp, err := c.chatModel.Generate(ctx, messages, model.WithTemperature(req.Temperature))
	if err != nil {
		return "", errors.Errorf("generate: %w", err)
	}
	return resp.Content, nil
}
