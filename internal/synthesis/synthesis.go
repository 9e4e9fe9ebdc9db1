// Package synthesis turns retrieved documentation and extracted commands
// into a final answer.
//
// Responsibilities:
//   - Score query complexity to pick a model tier
//   - Build a grounded prompt constrained to retrieved material
//   - Call the generation provider
//   - Strip command references the retrieval stage never surfaced
//   - Degrade to fixed text when generation fails or nothing was found
package synthesis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dynastybot/dynasty-ai/internal/llm/adapter"
	"github.com/dynastybot/dynasty-ai/internal/llm/types"
	"github.com/dynastybot/dynasty-ai/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultTierThreshold splits cheap from capable model selection.
	DefaultTierThreshold = 0.5

	DefaultMaxOutputTokens = 512

	// NoInformationText is returned without a generation call when
	// retrieval produced nothing to ground an answer on.
	NoInformationText = "I couldn't find anything about that in the league documentation. Try rephrasing, or use the help menu to see what I can answer."

	// UnavailableText is returned when generation fails after retries.
	UnavailableText = "The assistant is temporarily unavailable. Please try again in a moment."
)

// Complexity weights. Each term is capped at 1.0 before weighting so a
// single oversized input cannot dominate the score.
const (
	queryLenWeight   = 0.3
	snippetLenWeight = 0.4
	commandWeight    = 0.3

	queryLenCap   = 200.0
	snippetLenCap = 1500.0
	commandCap    = 5.0
)

// commandTokenRE matches a command token in model output; commandArgRE
// matches the word that may follow it to form a two-token command.
var (
	commandTokenRE = regexp.MustCompile(`/[a-z][a-z0-9-]*`)
	commandArgRE   = regexp.MustCompile(`^[ \t]+[a-z][a-z0-9-]*`)
)

// Synthesizer produces grounded answers from retrieval output.
type Synthesizer struct {
	provider        adapter.Provider
	tierThreshold   float64
	maxOutputTokens int
	logger          *zap.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithTierThreshold overrides the complexity cutoff for the capable model.
func WithTierThreshold(t float64) Option {
	return func(s *Synthesizer) { s.tierThreshold = t }
}

// WithMaxOutputTokens caps generated answer length.
func WithMaxOutputTokens(n int) Option {
	return func(s *Synthesizer) { s.maxOutputTokens = n }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synthesizer) { s.logger = l }
}

// New creates a Synthesizer backed by the given provider.
func New(provider adapter.Provider, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		provider:        provider,
		tierThreshold:   DefaultTierThreshold,
		maxOutputTokens: DefaultMaxOutputTokens,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Complexity scores how much reasoning a query likely needs, in [0,1].
// Each input contributes a capped, weighted term, so the score is
// monotonic non-decreasing in query length, retrieved text volume, and
// command count.
func Complexity(query string, snippets []models.Snippet, commands []string) float64 {
	queryTerm := capRatio(float64(len(query)), queryLenCap)
	snippetTerm := capRatio(float64(models.TotalLen(snippets)), snippetLenCap)
	commandTerm := capRatio(float64(len(commands)), commandCap)
	return queryLenWeight*queryTerm + snippetLenWeight*snippetTerm + commandWeight*commandTerm
}

func capRatio(v, limit float64) float64 {
	if v >= limit {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	return v / limit
}

// TierFor maps a complexity score to a model tier.
func (s *Synthesizer) TierFor(complexity float64) types.Tier {
	if complexity < s.tierThreshold {
		return types.TierSimple
	}
	return types.TierComplex
}

// Result carries the answer plus accounting data for the usage tracker.
type Result struct {
	Answer    string
	Tier      types.Tier
	Model     string
	Usage     types.TokenUsage
	Generated bool
}

// Answer produces a grounded reply. When both snippets and commands are
// empty the provider is never called and a fixed not-found text is
// returned. Generation failures degrade to fixed unavailable text rather
// than an error.
func (s *Synthesizer) Answer(ctx context.Context, query string, intent models.Intent, snippets []models.Snippet, commands []string, complexity float64) Result {
	if len(snippets) == 0 && len(commands) == 0 {
		return Result{Answer: NoInformationText, Tier: types.TierSimple}
	}

	tier := s.TierFor(complexity)
	req := types.CompletionRequest{
		Messages: []types.Message{
			{Role: "system", Content: buildSystemPrompt(snippets, commands)},
			{Role: "user", Content: query},
		},
		Tier:      tier,
		MaxTokens: s.maxOutputTokens,
	}

	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		s.logger.Warn("generation failed, degrading to fixed text",
			zap.String("tier", string(tier)),
			zap.Error(err))
		return Result{Answer: UnavailableText, Tier: tier}
	}

	answer := stripUnknownCommands(resp.Content, commands)
	return Result{
		Answer:    answer,
		Tier:      tier,
		Model:     resp.Model,
		Usage:     resp.Usage,
		Generated: true,
	}
}

// buildSystemPrompt constrains the model to the retrieved material.
func buildSystemPrompt(snippets []models.Snippet, commands []string) string {
	var b strings.Builder
	b.WriteString("You are the assistant for a dynasty football league bot. ")
	b.WriteString("Answer using ONLY the documentation excerpts below. ")
	b.WriteString("If the excerpts do not contain the answer, say you don't have that information. ")
	b.WriteString("Never invent commands, rules, or team assignments.\n")

	if len(snippets) > 0 {
		b.WriteString("\nDocumentation excerpts:\n")
		for _, sn := range snippets {
			if sn.SourceSection != "" {
				fmt.Fprintf(&b, "[%s]\n", sn.SourceSection)
			}
			b.WriteString(sn.Text)
			b.WriteString("\n\n")
		}
	}
	if len(commands) > 0 {
		b.WriteString("The only commands you may mention: ")
		b.WriteString(strings.Join(commands, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

// stripUnknownCommands removes command-like substrings the retrieval
// stage never surfaced, so the model cannot teach users commands that
// don't exist. At each command token the longest known form wins: the
// two-token form is consumed only when it is itself a known command, so
// a known one-token command followed by prose ("/teams today" with only
// "/teams" known) keeps the command and leaves the word as prose. An
// unknown token consumes its argument too, dropping the invented
// command whole.
func stripUnknownCommands(answer string, known []string) string {
	allowed := make(map[string]bool, len(known))
	for _, c := range known {
		allowed[c] = true
	}
	var b strings.Builder
	for len(answer) > 0 {
		loc := commandTokenRE.FindStringIndex(answer)
		if loc == nil {
			b.WriteString(answer)
			break
		}
		b.WriteString(answer[:loc[0]])
		tok := answer[loc[0]:loc[1]]
		answer = answer[loc[1]:]

		if arg := commandArgRE.FindString(answer); arg != "" {
			if full := tok + " " + strings.TrimSpace(arg); allowed[full] {
				b.WriteString(full)
				answer = answer[len(arg):]
				continue
			}
			if !allowed[tok] {
				answer = answer[len(arg):]
				continue
			}
		}
		if allowed[tok] {
			b.WriteString(tok)
		}
	}
	return strings.TrimSpace(collapseSpaces(b.String()))
}

var multiSpaceRE = regexp.MustCompile(`[ \t]{2,}`)

func collapseSpaces(s string) string {
	return multiSpaceRE.ReplaceAllString(s, " ")
}
