package openai

// Package openai implements the generation capability against the
// OpenAI chat completions API.
//
// Responsibilities:
//   - Map model tiers to concrete models (cheap vs capable)
//   - Non-streaming chat completion calls
//   - Rate-limit and timeout detection
//   - Bounded exponential backoff on retryable failures
//   - Report token usage for cost accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dynastybot/dynasty-ai/internal/llm/types"
	"github.com/dynastybot/dynasty-ai/internal/metrics"
)

const (
	DefaultBaseURL      = "https://api.openai.com/v1"
	DefaultSimpleModel  = "gpt-4o-mini"
	DefaultComplexModel = "gpt-4o"
	DefaultMaxTokens    = 1024
	DefaultMaxRetries   = 3

	// initialBackoff doubles per attempt: 500ms, 1s, 2s.
	initialBackoff = 500 * time.Millisecond
)

// Config configures the client.
type Config struct {
	APIKey       string
	SimpleModel  string
	ComplexModel string
	BaseURL      string
	MaxRetries   int
}

// Client talks to the OpenAI API.
type Client struct {
	apiKey       string
	simpleModel  string
	complexModel string
	baseURL      string
	maxRetries   int
	httpClient   *http.Client

	// sleep is swappable so retry tests don't wait on real backoff.
	sleep func(time.Duration)
}

// OpenAI API structures.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient creates an OpenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewClient(cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required")
		}
	}
	c := &Client{
		apiKey:       apiKey,
		simpleModel:  cfg.SimpleModel,
		complexModel: cfg.ComplexModel,
		baseURL:      cfg.BaseURL,
		maxRetries:   cfg.MaxRetries,
		httpClient:   &http.Client{Timeout: types.RequestTimeout},
		sleep:        time.Sleep,
	}
	if c.simpleModel == "" {
		c.simpleModel = DefaultSimpleModel
	}
	if c.complexModel == "" {
		c.complexModel = DefaultComplexModel
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	return c, nil
}

// modelFor maps a tier onto a concrete model.
func (c *Client) modelFor(tier types.Tier) string {
	if tier == types.TierComplex {
		return c.complexModel
	}
	return c.simpleModel
}

// Complete sends a chat completion request, retrying transient failures
// with capped exponential backoff. After the attempt budget is spent the
// last classified error is returned; the engine converts it into a
// textual fallback.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (*types.CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	body := chatRequest{
		Model:       c.modelFor(req.Tier),
		Messages:    convertMessages(req.Messages),
		MaxTokens:   maxTokens,
		Temperature: 0,
	}

	start := time.Now()
	tier := string(req.Tier)

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				metrics.LLMRequestsTotal.WithLabelValues(body.Model, tier, "timeout").Inc()
				return nil, fmt.Errorf("%w: %v", types.ErrTimeout, ctx.Err())
			default:
			}
			c.sleep(backoff)
			backoff *= 2
		}

		resp, err := c.doRequest(ctx, body)
		if err == nil {
			metrics.LLMRequestsTotal.WithLabelValues(body.Model, tier, "success").Inc()
			metrics.LLMRequestDuration.WithLabelValues(body.Model).Observe(time.Since(start).Seconds())
			return resp, nil
		}
		lastErr = err
		if !types.Retryable(err) {
			metrics.LLMRequestsTotal.WithLabelValues(body.Model, tier, "error").Inc()
			return nil, err
		}
	}
	metrics.LLMRequestsTotal.WithLabelValues(body.Model, tier, "error").Inc()
	return nil, lastErr
}

// doRequest performs one HTTP attempt.
func (c *Client) doRequest(ctx context.Context, body chatRequest) (*types.CompletionResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", types.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", types.ErrTransport, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", types.ErrTransport, err)
	}

	switch {
	case httpResp.StatusCode == http.StatusOK:
		// fallthrough to decode
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", types.ErrRateLimited, apiErrorMessage(respBody))
	case httpResp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d: %s", types.ErrTransport, httpResp.StatusCode, apiErrorMessage(respBody))
	default:
		// 4xx other than 429 is a caller bug; retrying won't help.
		return nil, fmt.Errorf("openai: status %d: %s", httpResp.StatusCode, apiErrorMessage(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}

	return &types.CompletionResponse{
		Content: parsed.Choices[0].Message.Content,
		Model:   parsed.Model,
		Usage: types.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

func convertMessages(messages []types.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, chatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func apiErrorMessage(body []byte) string {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error.Message != "" {
		return ae.Error.Message
	}
	return string(body)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
