package synthesis

import (
	"context"
	"strings"
	"testing"

	"github.com/dynastybot/dynasty-ai/internal/llm/adapter"
	"github.com/dynastybot/dynasty-ai/internal/llm/types"
	"github.com/dynastybot/dynasty-ai/internal/models"
)

func snippetsOfLen(n int) []models.Snippet {
	return []models.Snippet{{Text: strings.Repeat("a", n)}}
}

func TestComplexityBounds(t *testing.T) {
	if c := Complexity("", nil, nil); c != 0 {
		t.Errorf("empty inputs complexity = %v, want 0", c)
	}
	c := Complexity(strings.Repeat("q", 1000), snippetsOfLen(5000),
		[]string{"/a", "/b", "/c", "/d", "/e", "/f"})
	if c < 0.999 || c > 1.0 {
		t.Errorf("saturated complexity = %v, want 1.0", c)
	}
}

func TestComplexityMonotonic(t *testing.T) {
	base := Complexity("who has clemson", snippetsOfLen(200), []string{"/teams"})

	if got := Complexity("who has clemson and what are their records this year", snippetsOfLen(200), []string{"/teams"}); got < base {
		t.Errorf("longer query lowered complexity: %v < %v", got, base)
	}
	if got := Complexity("who has clemson", snippetsOfLen(800), []string{"/teams"}); got < base {
		t.Errorf("more snippet text lowered complexity: %v < %v", got, base)
	}
	if got := Complexity("who has clemson", snippetsOfLen(200), []string{"/teams", "/attributes"}); got < base {
		t.Errorf("more commands lowered complexity: %v < %v", got, base)
	}
}

func TestTierSelection(t *testing.T) {
	s := New(adapter.NewStub("", nil))
	if got := s.TierFor(0.3); got != types.TierSimple {
		t.Errorf("TierFor(0.3) = %v, want simple", got)
	}
	if got := s.TierFor(0.5); got != types.TierComplex {
		t.Errorf("TierFor(0.5) = %v, want complex", got)
	}
	if got := New(adapter.NewStub("", nil), WithTierThreshold(0.8)).TierFor(0.6); got != types.TierSimple {
		t.Errorf("custom threshold TierFor(0.6) = %v, want simple", got)
	}
}

func TestNoMaterialSkipsGeneration(t *testing.T) {
	stub := adapter.NewStub("should not be called", nil)
	s := New(stub)

	res := s.Answer(context.Background(), "who has narnia", models.Intent{}, nil, nil, 0.2)
	if res.Answer != NoInformationText {
		t.Errorf("answer = %q, want fixed not-found text", res.Answer)
	}
	if res.Generated {
		t.Error("result marked generated without a provider call")
	}
	if stub.Calls() != 0 {
		t.Errorf("provider called %d times, want 0", stub.Calls())
	}
}

func TestAnswerGeneratesFromMaterial(t *testing.T) {
	stub := adapter.NewStub("Use /teams who-has to check ownership.", nil)
	s := New(stub)

	snips := []models.Snippet{{Text: "Use /teams who-has <team> to check ownership.", SourceSection: "Teams"}}
	res := s.Answer(context.Background(), "how do I check who owns a team",
		models.Intent{Topic: "teams"}, snips, []string{"/teams who-has"}, 0.2)

	if !res.Generated {
		t.Fatal("expected a generated answer")
	}
	if !strings.Contains(res.Answer, "/teams who-has") {
		t.Errorf("known command stripped from answer: %q", res.Answer)
	}
	if stub.Calls() != 1 {
		t.Errorf("provider calls = %d, want 1", stub.Calls())
	}
}

func TestGenerationFailureDegrades(t *testing.T) {
	stub := adapter.NewStub("", types.ErrTransport)
	s := New(stub)

	res := s.Answer(context.Background(), "anything", models.Intent{},
		snippetsOfLen(100), nil, 0.2)
	if res.Answer != UnavailableText {
		t.Errorf("answer = %q, want fixed unavailable text", res.Answer)
	}
	if res.Generated {
		t.Error("failed generation marked as generated")
	}
}

func TestStripUnknownCommands(t *testing.T) {
	known := []string{"/teams who-has", "/attributes my-points"}

	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{
			name:   "known commands kept",
			answer: "Run /teams who-has or /attributes my-points.",
			want:   "Run /teams who-has or /attributes my-points.",
		},
		{
			name:   "invented command removed",
			answer: "Try /magic reroll to fix it.",
			want:   "Try to fix it.",
		},
		{
			name:   "mixed",
			answer: "Use /teams who-has, not /secret command.",
			want:   "Use /teams who-has, not .",
		},
		{
			name:   "no commands untouched",
			answer: "Check the league settings channel.",
			want:   "Check the league settings channel.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripUnknownCommands(tt.answer, known); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripKeepsKnownPrefixBeforeProse(t *testing.T) {
	// A known one-token command followed by a lowercase word must not
	// be treated as an unknown two-token command.
	known := []string{"/teams"}
	answer := "Run /teams today for the list."

	got := stripUnknownCommands(answer, known)
	if got != answer {
		t.Errorf("got %q, want %q", got, answer)
	}
	// Stripping is a fixed point: the kept text contains no command
	// form outside the known set for a second pass to remove.
	if again := stripUnknownCommands(got, known); again != got {
		t.Errorf("second pass changed output: %q != %q", again, got)
	}
}

func TestStripUnknownTwoTokenWithKnownLookalike(t *testing.T) {
	// "/teams today" where only the two-token "/teams who-has" is known:
	// the bare token is not a command, so both words are dropped.
	known := []string{"/teams who-has"}

	got := stripUnknownCommands("Use /teams today instead.", known)
	if want := "Use instead."; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
