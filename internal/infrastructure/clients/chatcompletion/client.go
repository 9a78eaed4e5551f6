package chatcompletion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Medicalreportanalysis/backend/pkg/config"
)

const (
	providerName = "chat-completions"
	maxTokens    = 2048
)

// Client calls an OpenAI compatible chat completions endpoint.
type Client struct {
	client *openai.Client
	model  string
}

var _ providers.TextAnalyzer = (*Client)(nil)

// NewClient creates a chat completions client. BaseURL may point at any
// OpenAI compatible gateway.
func NewClient(cfg *config.ProviderConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("chat completions api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string {
	return providerName + ":" + c.model
}

// Complete sends prompt as a user message and requests a JSON object reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: providers.AnalystSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	// Reasoning models reject max_tokens and a non-default temperature.
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		req.Temperature = 0.1
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		status := 0
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.HTTPStatusCode
		}
		observability.RecordOracleCall(ctx, providerName, c.model, status, time.Since(start), err)
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return "", fmt.Errorf("%w: %v", providers.ErrOracleUnauthorized, err)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		err := errors.New("chat completion returned no content")
		observability.RecordOracleCall(ctx, providerName, c.model, http.StatusOK, time.Since(start), err)
		return "", err
	}

	observability.RecordOracleCall(ctx, providerName, c.model, http.StatusOK, time.Since(start), nil)
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
