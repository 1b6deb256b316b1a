package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/soc2kit/compliance-copilot/internal/domain/ai"
	"github.com/soc2kit/compliance-copilot/internal/infra/ai/prompt"
)

const maxTokens = 4096

// Client talks to an OpenAI-compatible chat-completion gateway. The API
// key is resolved per request via keyFn so rotation takes effect
// immediately; an empty key maps to ai.ErrNotConfigured.
type Client struct {
	baseURL string
	model   string
	keyFn   func() string
}

func NewClient(baseURL, model string, keyFn func() string) *Client {
	if model == "" {
		model = "google/gemini-2.5-flash"
	}
	return &Client{baseURL: baseURL, model: model, keyFn: keyFn}
}

func (c *Client) AnalyzeCompliance(ctx context.Context, documentText string) (string, error) {
	return c.complete(ctx, prompt.AnalysisSystem(), prompt.AnalysisUser(documentText))
}

func (c *Client) GeneratePolicy(ctx context.Context, control, documentText string) (string, error) {
	return c.complete(ctx, prompt.PolicySystem(), prompt.PolicyUser(control, documentText))
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	key := c.keyFn()
	if key == "" {
		return "", ai.ErrNotConfigured
	}

	cfg := openai.DefaultConfig(key)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	cli := openai.NewClientWithConfig(cfg)

	resp, err := cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", mapUpstreamError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: no reply from model", ai.ErrUpstreamFormat)
	}
	return resp.Choices[0].Message.Content, nil
}

// mapUpstreamError translates gateway failures into the domain taxonomy:
// 429 rate limited, 402 quota exceeded, anything else upstream.
func mapUpstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ai.ErrRateLimited, apiErr.Message)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ai.ErrQuotaExceeded, apiErr.Message)
		}
		return fmt.Errorf("%w: status %d: %s", ai.ErrUpstream, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ai.ErrRateLimited, reqErr.Err)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, reqErr.Err)
		}
		return fmt.Errorf("%w: status %d: %v", ai.ErrUpstream, reqErr.HTTPStatusCode, reqErr.Err)
	}

	return fmt.Errorf("%w: %v", ai.ErrUpstream, err)
}
