package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bryanwahyu/phishguard/internal/domain/assessment"
	"github.com/bryanwahyu/phishguard/internal/infra/ai/prompt"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/"
	DefaultModel   = "models/gemini-2.5-flash"
	defaultTimeout = 20 * time.Second

	maxErrorBody = 4096
)

// Client wraps the genai SDK for the Gemini API backend.
type Client struct {
	*genai.Client
	model   string
	Timeout time.Duration
}

// NewClient builds a Gemini client. An empty apiKey is a configuration error.
func NewClient(ctx context.Context, apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY not found", assessment.ErrConfigurationMissing)
	}
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", assessment.ErrConfigurationMissing, err)
	}
	return &Client{Client: cli, model: model, Timeout: timeout}, nil
}

// Model returns the configured model identifier, as given (may carry the "models/" prefix).
func (c *Client) Model() string { return c.model }

// Assess sends the phishing prompt for url and parses the model's JSON answer.
func (c *Client) Assess(ctx context.Context, rawURL string) (assessment.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	resp, err := c.Models.GenerateContent(ctx, c.model, genai.Text(prompt.BuildPrompt(rawURL)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return assessment.Result{}, upstreamError("generateContent", err)
	}

	text, ok := firstText(resp)
	if !ok {
		raw, _ := json.Marshal(resp)
		return assessment.Result{}, fmt.Errorf("%w: unexpected Gemini response format: %s",
			assessment.ErrMalformedResponse, prompt.Truncate(string(raw), maxErrorBody))
	}
	return prompt.ParseAssessment(text)
}

// ListModels returns models supporting generateContent.
func (c *Client) ListModels(ctx context.Context) ([]assessment.ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	out := []assessment.ModelInfo{}
	page, err := c.Models.List(ctx, &genai.ListModelsConfig{PageSize: 100})
	for {
		if err != nil {
			if errors.Is(err, genai.ErrPageDone) {
				return out, nil
			}
			return nil, upstreamError("listing models", err)
		}
		for _, m := range page.Items {
			if m == nil {
				continue
			}
			for _, action := range m.SupportedActions {
				if action == "generateContent" {
					out = append(out, assessment.ModelInfo{
						Name:        m.Name,
						DisplayName: m.DisplayName,
						Methods:     m.SupportedActions,
					})
					break
				}
			}
		}
		page, err = page.Next(ctx)
	}
}

// firstText returns the text of the first candidate's first part.
func firstText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0] == nil {
		return "", false
	}
	text := content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// upstreamError maps SDK errors onto the assessment sentinels.
func upstreamError(op string, err error) error {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		return &StatusError{Code: apiErr.Code, Body: prompt.Truncate(apiErr.Message, maxErrorBody)}
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		return &StatusError{Code: apiErrPtr.Code, Body: prompt.Truncate(apiErrPtr.Message, maxErrorBody)}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %s: %v", assessment.ErrMalformedResponse, op, err)
	}
	return fmt.Errorf("%w: %s: %v", assessment.ErrUpstreamUnavailable, op, err)
}

// StatusError is a non-200 answer from the Gemini API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Google API Error %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() []error {
	if e.Code == http.StatusTooManyRequests {
		return []error{assessment.ErrUpstreamUnavailable, assessment.ErrQuotaExceeded}
	}
	return []error{assessment.ErrUpstreamUnavailable}
}

// StatusCode exposes the HTTP status for callers that report it.
func (e *StatusError) StatusCode() int { return e.Code }
