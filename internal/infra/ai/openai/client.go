package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/phishguard/internal/domain/assessment"
	"github.com/bryanwahyu/phishguard/internal/infra/ai/prompt"
)

const (
	maxTokens      = 512
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 20 * time.Second
)

type Client struct {
	*openai.Client
	model   string
	APIKey  string
	Timeout time.Duration
}

// NewClient builds a chat-completion assessor. baseURL is optional and allows
// OpenAI-compatible gateways.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), model: model, APIKey: apiKey, Timeout: timeout}
}

func (c *Client) Model() string { return c.model }

func (c *Client) Assess(ctx context.Context, url string) (assessment.Result, error) {
	if c.APIKey == "" {
		return assessment.Result{}, fmt.Errorf("%w: AI_API_KEY not found", assessment.ErrConfigurationMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	model := c.model
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(url)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return assessment.Result{}, upstreamError("failed to create chat completion", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return assessment.Result{}, fmt.Errorf("%w: chat completion returned no content", assessment.ErrMalformedResponse)
	}

	return prompt.ParseAssessment(resp.Choices[0].Message.Content)
}

func (c *Client) ListModels(ctx context.Context) ([]assessment.ModelInfo, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%w: AI_API_KEY not found", assessment.ErrConfigurationMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	list, err := c.Client.ListModels(ctx)
	if err != nil {
		return nil, upstreamError("failed to list models", err)
	}

	out := make([]assessment.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, assessment.ModelInfo{Name: m.ID, Methods: []string{"chat.completions"}})
	}
	return out, nil
}

// upstreamError maps go-openai failures onto the assessment error taxonomy.
func upstreamError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %w: %v", op, assessment.ErrUpstreamUnavailable, assessment.ErrQuotaExceeded, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %w: %v", op, assessment.ErrUpstreamUnavailable, assessment.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("%s: %w: %v", op, assessment.ErrUpstreamUnavailable, err)
}
