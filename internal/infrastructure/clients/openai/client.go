package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Medicalreportanalysis/backend/pkg/config"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	providerName    = "openai-responses"
	maxOutputTokens = 2048
)

// Client calls the OpenAI Responses API over plain HTTP.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
}

var _ providers.TextAnalyzer = (*Client)(nil)

// NewClient creates a new Responses API client.
func NewClient(cfg *config.ProviderConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4.1-mini"
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

// Close stops the rate limiter refill
func (c *Client) Close() error {
	c.limiter.Stop()
	return nil
}

// Name identifies the provider.
func (c *Client) Name() string {
	return providerName + ":" + c.model
}

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Content []responseContent `json:"content"`
}

type responseEnvelope struct {
	Output []responseOutput `json:"output"`
}

// Complete sends prompt as the user input and returns the first output text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			observability.RecordOracleCall(ctx, providerName, c.model, 0, 0, err)
			return "", err
		}
		observability.RecordOracleRateLimitWait(ctx, providerName, c.model, time.Since(waitStart))
	}

	payload := map[string]interface{}{
		"model": c.model,
		"input": []map[string]string{
			{"role": "system", "content": providers.AnalystSystemPrompt},
			{"role": "user", "content": prompt},
		},
		"text": map[string]interface{}{
			"format": map[string]string{"type": "json_object"},
		},
		"temperature":       0.1,
		"max_output_tokens": maxOutputTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordOracleCall(ctx, providerName, c.model, 0, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("openai request failed with status %d", resp.StatusCode)
		observability.RecordOracleCall(ctx, providerName, c.model, resp.StatusCode, time.Since(start), statusErr)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w: %v", providers.ErrOracleUnauthorized, statusErr)
		}
		return "", statusErr
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		observability.RecordOracleCall(ctx, providerName, c.model, resp.StatusCode, time.Since(start), err)
		return "", fmt.Errorf("failed to decode openai response: %w", err)
	}

	var text string
	for _, out := range envelope.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && content.Text != "" {
				text = content.Text
				break
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		err := errors.New("openai response missing output text")
		observability.RecordOracleCall(ctx, providerName, c.model, resp.StatusCode, time.Since(start), err)
		return "", err
	}

	observability.RecordOracleCall(ctx, providerName, c.model, resp.StatusCode, time.Since(start), nil)
	return text, nil
}
