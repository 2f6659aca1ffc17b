// Package xai talks to OpenAI compatible chat completion APIs, xAI by default.
package xai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kaziconnect/kaziconnect/internal/ai"
	"go.uber.org/zap"
)

const (
	Provider = "xai"

	DefaultBaseURL     = "https://api.x.ai/v1"
	DefaultModel       = "grok-3-mini-beta"
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.7
	defaultTimeout     = 30 * time.Second
	maxErrorBody       = 512
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client is an ai.Completer for the /chat/completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New returns a client with defaults applied. A nil httpClient gets a
// 30 second timeout.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, ai.ErrNotConfigured
	}
	if cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}, nil
}

func (c *Client) Provider() string { return Provider }
func (c *Client) Model() string    { return c.cfg.Model }

func (c *Client) Complete(ctx context.Context, messages []ai.Message) (string, error) {
	if err := ai.ValidateMessages(messages); err != nil {
		return "", err
	}

	payload := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("xai request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("xai chat completion",
		zap.Int("status", resp.StatusCode),
		zap.Int("messages", len(messages)),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var body chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode xai response: %w", err)
	}

	if len(body.Choices) == 0 || strings.TrimSpace(body.Choices[0].Message.Content) == "" {
		return "", ai.ErrEmptyResponse
	}

	return strings.TrimSpace(body.Choices[0].Message.Content), nil
}

// StatusError reports a non-success HTTP status from the provider. Body is
// kept for diagnostics and is not part of Error.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("xai http %d", e.Code)
}

type chatRequest struct {
	Model       string       `json:"model"`
	Messages    []ai.Message `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
