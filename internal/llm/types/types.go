package types

import (
	"errors"
	"time"
)

// Sentinel errors for provider failure classes. All of them degrade to
// a textual fallback at the engine boundary; none propagate to callers.
var (
	ErrRateLimited = errors.New("llm: rate limited")
	ErrTimeout     = errors.New("llm: request timed out")
	ErrTransport   = errors.New("llm: transport failure")
)

// Retryable reports whether a completion failure is worth another
// attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransport)
}

// Message represents a message in a conversation.
type Message struct {
	Role    string `json:"role"`    // user, assistant, system
	Content string `json:"content"` // message text
}

// Tier selects the generation model by estimated query complexity.
type Tier string

const (
	// TierSimple is the cheap/fast model for routine questions.
	TierSimple Tier = "simple"
	// TierComplex is the capable model for queries that need reasoning.
	TierComplex Tier = "complex"
)

// CompletionRequest represents a request to complete text.
type CompletionRequest struct {
	Messages  []Message `json:"messages"`   // conversation, system message first
	Tier      Tier      `json:"tier"`       // model tier to use
	MaxTokens int       `json:"max_tokens"` // output token cap, 0 = provider default
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content string     `json:"content"` // generated text
	Model   string     `json:"model"`   // concrete model that answered
	Usage   TokenUsage `json:"usage"`   // token usage
}

// TokenUsage tracks token consumption for one call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`     // input tokens
	CompletionTokens int `json:"completion_tokens"` // output tokens
	TotalTokens      int `json:"total_tokens"`      // total tokens
}

// EstimateTokens approximates the token count for text. One token per
// four characters is close enough for budget accounting when the
// provider does not report usage.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// RequestTimeout is the default per-attempt HTTP timeout.
const RequestTimeout = 60 * time.Second
