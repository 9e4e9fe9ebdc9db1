package adapter

// Package adapter defines the generation capability used by the
// synthesizer and provides its two implementations.
//
// Responsibilities:
//   - Abstract the completion API behind a single Provider interface
//   - Select the concrete provider from configuration
//   - Keep the stub and the network client interchangeable
//
// Implementations:
//   1. openai.Client — network-backed, with bounded-backoff retries
//   2. Stub — deterministic canned completions for hermetic tests
//
// The pipeline never talks to a provider directly; the stub makes the
// grounding contract testable without network access.

import (
	"context"
	"fmt"

	"github.com/dynastybot/dynasty-ai/internal/llm/provider/openai"
	"github.com/dynastybot/dynasty-ai/internal/llm/types"
)

// Provider is the generation capability.
type Provider interface {
	Complete(ctx context.Context, req types.CompletionRequest) (*types.CompletionResponse, error)
}

// Config selects and configures the concrete provider.
type Config struct {
	// Provider is "openai" or "stub".
	Provider string

	// APIKey authenticates against the real provider.
	APIKey string

	// SimpleModel and ComplexModel are the tier → model mapping.
	SimpleModel  string
	ComplexModel string

	// BaseURL overrides the provider endpoint (tests, proxies).
	BaseURL string

	// MaxRetries bounds retry attempts for retryable failures.
	MaxRetries int
}

// NewProvider builds the configured provider.
func NewProvider(cfg *Config) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("adapter config cannot be nil")
	}
	switch cfg.Provider {
	case "openai", "":
		return openai.NewClient(openai.Config{
			APIKey:       cfg.APIKey,
			SimpleModel:  cfg.SimpleModel,
			ComplexModel: cfg.ComplexModel,
			BaseURL:      cfg.BaseURL,
			MaxRetries:   cfg.MaxRetries,
		})
	case "stub":
		return NewStub("", nil), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
