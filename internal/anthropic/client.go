// Package anthropic is a minimal client for the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"

	// statusOverloaded is Anthropic's non-standard overload status.
	statusOverloaded = 529
)

// Client handles communication with the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *observability.Logger
}

// Message represents a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents the Messages API request body.
type Request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}

// ContentBlock represents one block of response content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response represents the Messages API response body.
type Response struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Content    []ContentBlock `json:"content"`
	Usage      Usage          `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Completion is the text and usage of one successful call.
type Completion struct {
	Text       string
	StopReason string
	Usage      domain.Usage
}

// NewClient creates a Messages API client from provider config.
func NewClient(cfg config.AnthropicConfig, logger *observability.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete sends a single user prompt and returns the concatenated text
// blocks of the response. Rate limits, overloads and server errors come
// back as transient domain errors so callers can retry.
func (c *Client) Complete(ctx context.Context, prompt string) (*Completion, error) {
	if c.apiKey == "" {
		return nil, domain.ConfigError("anthropic api key is not set", nil)
	}

	body, err := json.Marshal(Request{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, domain.ProviderError("marshal anthropic request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, domain.ProviderError("build anthropic request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection failures and timeouts are worth retrying.
		return nil, domain.TransientProviderError("send anthropic request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.TransientProviderError("read anthropic response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, respBody)
	}

	var parsed Response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, domain.ParseError("decode anthropic response", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	completion := &Completion{
		Text:       text.String(),
		StopReason: parsed.StopReason,
		Usage: domain.Usage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
		},
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("input_tokens", completion.Usage.InputTokens).
		Int("output_tokens", completion.Usage.OutputTokens).
		Str("stop_reason", parsed.StopReason).
		Msg("Completion received")

	return completion, nil
}

// statusError maps an HTTP failure to the domain error taxonomy.
func statusError(status int, body []byte) error {
	message := fmt.Sprintf("anthropic api returned status %d", status)

	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = fmt.Sprintf("anthropic api returned status %d: %s", status, envelope.Error.Message)
	}

	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		statusOverloaded:
		return domain.TransientProviderError(message, nil)
	default:
		return domain.ProviderError(message, nil)
	}
}
