package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dynastybot/dynasty-ai/internal/llm/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.sleep = func(time.Duration) {}
	return c
}

func okResponse(content string) []byte {
	resp := chatResponse{Model: "gpt-4o-mini"}
	resp.Choices = append(resp.Choices, struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	}{})
	resp.Choices[0].Message.Content = content
	resp.Usage.PromptTokens = 12
	resp.Usage.CompletionTokens = 8
	resp.Usage.TotalTokens = 20
	b, _ := json.Marshal(resp)
	return b
}

func TestCompleteSuccess(t *testing.T) {
	var gotModel string
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotModel = req.Model
		w.Write(okResponse("Clemson is assigned to @alice."))
	})

	resp, err := c.Complete(context.Background(), types.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: "who has clemson"}},
		Tier:     types.TierSimple,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "Clemson is assigned to @alice." {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Errorf("total tokens = %d, want 20", resp.Usage.TotalTokens)
	}
	if gotModel != DefaultSimpleModel {
		t.Errorf("model = %q, want %q", gotModel, DefaultSimpleModel)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestTierSelectsModel(t *testing.T) {
	var gotModel string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		w.Write(okResponse("ok"))
	})

	if _, err := c.Complete(context.Background(), types.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: "explain scoring"}},
		Tier:     types.TierComplex,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gotModel != DefaultComplexModel {
		t.Errorf("model = %q, want %q", gotModel, DefaultComplexModel)
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down"}}`))
			return
		}
		w.Write(okResponse("eventually"))
	})

	resp, err := c.Complete(context.Background(), types.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "eventually" {
		t.Errorf("content = %q", resp.Content)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetriesExhausted(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Complete(context.Background(), types.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: "hi"}},
	})
	if !errors.Is(err, types.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if attempts != DefaultMaxRetries {
		t.Errorf("attempts = %d, want %d", attempts, DefaultMaxRetries)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model"}}`))
	})

	_, err := c.Complete(context.Background(), types.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if types.Retryable(err) {
		t.Errorf("4xx error classified retryable: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
