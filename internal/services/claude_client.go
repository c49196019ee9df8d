package services

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

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/stitts-dev/picado/internal/teamgen"
	"github.com/stitts-dev/picado/pkg/config"
)

const anthropicVersion = "2023-06-01"

// ErrMissingAPIKey is returned when no Anthropic key is configured.
var ErrMissingAPIKey = errors.New("anthropic API key is not configured")

// ClaudeClient is the TeamBalancer backed by the Anthropic Messages API.
type ClaudeClient struct {
	httpClient     *http.Client
	logger         *logrus.Logger
	apiKey         string
	baseURL        string
	model          string
	maxTokens      int
	temperature    float64
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
}

// ClaudeMessage represents a message in the conversation
type ClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeRequest represents the request payload for Claude API
type ClaudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature,omitempty"`
	Messages    []ClaudeMessage `json:"messages"`
}

// ClaudeResponse represents the response from Claude API
type ClaudeResponse struct {
	ID         string               `json:"id"`
	Model      string               `json:"model"`
	Content    []ClaudeContentBlock `json:"content"`
	StopReason string               `json:"stop_reason"`
	Usage      ClaudeUsage          `json:"usage"`
}

// ClaudeContentBlock represents content blocks in the response
type ClaudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ClaudeUsage represents token usage information
type ClaudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-200 reply from the Messages API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("claude API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("claude API returned status %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

// abandonedError marks a request cut short by the caller's own context.
type abandonedError struct{ err error }

func (e *abandonedError) Error() string { return e.err.Error() }
func (e *abandonedError) Unwrap() error { return e.err }

// countsAsSuccess keeps caller-side failures out of the breaker's failure counts: abandoned
// requests and 4xx replies other than 429.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var abandoned *abandonedError
	if errors.As(err, &abandoned) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// NewClaudeClient creates a new Claude API client with rate limiting and circuit breaker
func NewClaudeClient(cfg *config.Config, logger *logrus.Logger) *ClaudeClient {
	threshold := uint32(cfg.CircuitBreakerThreshold)
	if threshold == 0 {
		threshold = 3
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "claude-api",
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		IsSuccessful: countsAsSuccess,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Info("Claude API circuit breaker state changed")
		},
	})

	limit := rate.Inf
	if cfg.AIRateLimit > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.AIRateLimit))
	}

	timeout := cfg.AITimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &ClaudeClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:         logger,
		apiKey:         cfg.AnthropicAPIKey,
		baseURL:        strings.TrimSuffix(cfg.AnthropicBaseURL, "/"),
		model:          cfg.AIModel,
		maxTokens:      cfg.AIMaxTokens,
		temperature:    cfg.AITemperature,
		rateLimiter:    rate.NewLimiter(limit, 1),
		circuitBreaker: cb,
	}
}

// Balance sends the balancing prompt and returns the concatenated text of the reply. It makes a
// single attempt; retrying is left to the caller.
func (c *ClaudeClient) Balance(ctx context.Context, req *teamgen.BalanceRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	request := ClaudeRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []ClaudeMessage{
			{Role: "user", Content: req.Prompt},
		},
	}

	start := time.Now()
	response, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		resp, err := c.makeRequest(ctx, request)
		if err != nil && ctx.Err() != nil {
			return nil, &abandonedError{err: err}
		}
		return resp, err
	})
	if err != nil {
		return "", fmt.Errorf("claude API request failed: %w", err)
	}
	claudeResp := response.(*ClaudeResponse)

	log := c.logger.WithFields(logrus.Fields{
		"model":         claudeResp.Model,
		"input_tokens":  claudeResp.Usage.InputTokens,
		"output_tokens": claudeResp.Usage.OutputTokens,
		"stop_reason":   claudeResp.StopReason,
		"duration_ms":   time.Since(start).Milliseconds(),
	})
	if claudeResp.StopReason == "max_tokens" {
		log.Warn("Claude reply hit the token limit and is likely truncated")
	} else {
		log.Debug("Claude reply received")
	}

	var text strings.Builder
	for _, block := range claudeResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &teamgen.MalformedResponseError{Reason: "no text content in Claude reply"}
	}
	return text.String(), nil
}

func (c *ClaudeClient) makeRequest(ctx context.Context, request ClaudeRequest) (*ClaudeResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body claudeErrorBody
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil {
			if json.Unmarshal(data, &body) == nil {
				apiErr.Type = body.Error.Type
				apiErr.Message = body.Error.Message
			}
		}
		return nil, apiErr
	}

	var claudeResp ClaudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&claudeResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &claudeResp, nil
}

// IsHealthy checks if the Claude API client is healthy
func (c *ClaudeClient) IsHealthy() bool {
	return c.apiKey != "" && c.circuitBreaker.State() != gobreaker.StateOpen
}

// GetCircuitBreakerState returns the current circuit breaker state
func (c *ClaudeClient) GetCircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}
