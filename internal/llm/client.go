package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("studyai/llm")

var (
	ErrAPIKeyRequired = errors.New("llm: api key is required")
	ErrEmptyResponse  = errors.New("llm: response contained no choices")
)

const maxErrorBody = 4 << 10

// Config holds the provider endpoint and generation settings.
type Config struct {
	// BaseURL of an OpenAI-compatible API, without the /chat/completions suffix.
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	// MaxTokens is omitted from requests when zero.
	MaxTokens int
	// Timeout bounds each call, including reading the response body.
	Timeout time.Duration
}

// DefaultConfig targets Groq's OpenAI-compatible endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.groq.com/openai/v1",
		Model:       "llama-3.3-70b-versatile",
		Temperature: 0.5,
		Timeout:     60 * time.Second,
	}
}

// APIError is returned when the provider answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm: provider returned status %d: %s", e.StatusCode, e.Body)
}

// Client is an explicitly constructed provider client. Create it once at
// startup with NewClient, share it between goroutines, and call Close on shutdown.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient validates cfg and creates a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends req to /chat/completions and returns the first choice's content.
// Failures are returned as-is; there are no retries.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.Complete", trace.WithAttributes(
		attribute.String("llm.model", c.cfg.Model),
		attribute.Bool("llm.json_mode", req.JSONMode),
		attribute.Int("llm.messages", len(req.Messages)),
	))
	defer span.End()

	content, err := c.complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	return content, nil
}

func (c *Client) complete(ctx context.Context, req Request) (string, error) {
	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    req.Messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", out.Usage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", out.Usage.CompletionTokens),
	)

	return out.Choices[0].Message.Content, nil
}
