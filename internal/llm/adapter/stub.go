package adapter

import (
	"context"
	"sync/atomic"

	"github.com/dynastybot/dynasty-ai/internal/llm/types"
)

// Stub is a deterministic Provider for tests: it returns a canned
// completion (or error) and counts invocations, so tests can assert
// that short-circuit paths never reach generation.
type Stub struct {
	// Response is returned verbatim. When empty, the stub echoes the
	// last user message prefixed with "stub:".
	Response string

	// Err, when set, is returned on every call.
	Err error

	calls atomic.Int64
}

// NewStub creates a stub provider.
func NewStub(response string, err error) *Stub {
	return &Stub{Response: response, Err: err}
}

// Complete returns the canned completion.
func (s *Stub) Complete(_ context.Context, req types.CompletionRequest) (*types.CompletionResponse, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}

	content := s.Response
	if content == "" {
		for i := len(req.Messages) - 1; i >= 0; i-- {
			if req.Messages[i].Role == "user" {
				content = "stub: " + req.Messages[i].Content
				break
			}
		}
	}

	prompt := 0
	for _, m := range req.Messages {
		prompt += types.EstimateTokens(m.Content)
	}
	out := types.EstimateTokens(content)
	return &types.CompletionResponse{
		Content: content,
		Model:   "stub-" + string(req.Tier),
		Usage: types.TokenUsage{
			PromptTokens:     prompt,
			CompletionTokens: out,
			TotalTokens:      prompt + out,
		},
	}, nil
}

// Calls returns how many times Complete was invoked.
func (s *Stub) Calls() int { return int(s.calls.Load()) }

// ResetCalls zeroes the invocation counter.
func (s *Stub) ResetCalls() { s.calls.Store(0) }
