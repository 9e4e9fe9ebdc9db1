// Package engine runs the query resolution pipeline.
//
// Responsibilities:
//   - Scope validation (the only hard rejection)
//   - Cache lookup before any other work
//   - Pattern router short-circuit for high-confidence matches
//   - Retrieval, command extraction, and synthesis fallback
//   - Cache commit only after full completion
//   - Usage accounting for every resolution
//
// Every stage failure other than an invalid scope degrades to safe
// text; callers always get an answer string.
package engine

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dynastybot/dynasty-ai/internal/cache"
	"github.com/dynastybot/dynasty-ai/internal/metrics"
	"github.com/dynastybot/dynasty-ai/internal/models"
	"github.com/dynastybot/dynasty-ai/internal/normalize"
	"github.com/dynastybot/dynasty-ai/internal/patterns"
	"github.com/dynastybot/dynasty-ai/internal/retrieval"
	"github.com/dynastybot/dynasty-ai/internal/synthesis"
	"github.com/dynastybot/dynasty-ai/internal/usage"
	"go.uber.org/zap"
)

// ErrInvalidScope rejects malformed scope identifiers. This is the only
// error Resolve returns; everything else degrades to text.
var ErrInvalidScope = errors.New("invalid scope identifier")

// A scope is a numeric server id or a lowercase slug.
var scopeRE = regexp.MustCompile(`^(?:[0-9]+|[a-z0-9][a-z0-9-]*)$`)

// EmptyQueryText answers blank input without touching the pipeline.
const EmptyQueryText = "Ask me something about the league — try the help menu to see what I can answer."

// Engine coordinates the resolution stages.
type Engine struct {
	cache       *cache.QueryCache // nil when caching is disabled
	router      *patterns.Router
	retriever   *retrieval.Retriever
	synthesizer *synthesis.Synthesizer
	tracker     *usage.Tracker
	logger      *zap.Logger
}

// Deps are the collaborators an Engine needs. Cache may be nil.
type Deps struct {
	Cache       *cache.QueryCache
	Router      *patterns.Router
	Retriever   *retrieval.Retriever
	Synthesizer *synthesis.Synthesizer
	Tracker     *usage.Tracker
	Logger      *zap.Logger
}

// New creates an Engine.
func New(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cache:       deps.Cache,
		router:      deps.Router,
		retriever:   deps.Retriever,
		synthesizer: deps.Synthesizer,
		tracker:     deps.Tracker,
		logger:      logger,
	}
}

// ValidScope reports whether a scope identifier is well formed.
func ValidScope(scope string) bool {
	return scopeRE.MatchString(scope)
}

// Resolve answers a raw query within a scope.
func (e *Engine) Resolve(ctx context.Context, scope, rawQuery string) (string, error) {
	if !ValidScope(scope) {
		return "", ErrInvalidScope
	}
	start := time.Now()

	normalized := normalize.Normalize(rawQuery)
	if normalized == "" {
		return EmptyQueryText, nil
	}

	// Stage 1: cache.
	if e.cache != nil {
		if answer, ok := e.cache.Get(scope, rawQuery); ok {
			e.record(usage.Record{
				Operation:  "resolve",
				CacheHit:   true,
				DurationMS: time.Since(start).Milliseconds(),
			})
			metrics.QueriesTotal.WithLabelValues("cache", "ok").Inc()
			metrics.QueryDuration.WithLabelValues("cache").Observe(time.Since(start).Seconds())
			return answer, nil
		}
		metrics.CacheMisses.Inc()
	}

	// Stage 2: pattern router.
	if e.router != nil {
		if m, ok := e.router.TryMatch(normalized); ok && e.router.AboveThreshold(m) {
			answer, err := m.Dispatch(ctx, scope)
			metrics.PatternMatches.WithLabelValues(m.IntentTag, boolLabel(err == nil)).Inc()
			if err != nil {
				// Fall through to the generation path.
				e.logger.Warn("pattern dispatch failed",
					zap.String("intent", m.IntentTag),
					zap.String("scope", scope),
					zap.Error(err))
			} else {
				e.commit(ctx, scope, rawQuery, answer)
				e.record(usage.Record{
					Operation:  "pattern",
					DurationMS: time.Since(start).Milliseconds(),
				})
				metrics.QueriesTotal.WithLabelValues("pattern", "ok").Inc()
				metrics.QueryDuration.WithLabelValues("pattern").Observe(time.Since(start).Seconds())
				return answer, nil
			}
		}
	}

	// Stage 3: retrieval and synthesis.
	intent := patterns.DeriveIntent(normalized)

	var snippets []models.Snippet
	if e.retriever != nil {
		snippets = e.retriever.Search(intent)
	}
	commands := retrieval.ExtractCommands(snippets)

	complexity := synthesis.Complexity(rawQuery, snippets, commands)
	res := e.synthesizer.Answer(ctx, rawQuery, intent, snippets, commands, complexity)

	e.commit(ctx, scope, rawQuery, res.Answer)
	e.record(usage.Record{
		Operation:    "resolve",
		ModelTier:    string(res.Tier),
		Model:        res.Model,
		InputTokens:  res.Usage.PromptTokens,
		OutputTokens: res.Usage.CompletionTokens,
		DurationMS:   time.Since(start).Milliseconds(),
	})
	metrics.QueriesTotal.WithLabelValues("synthesis", boolLabel(res.Generated)).Inc()
	metrics.QueryDuration.WithLabelValues("synthesis").Observe(time.Since(start).Seconds())

	return res.Answer, nil
}

// commit writes an answer to the cache after the resolution fully
// completed. A cancelled context aborts the write so interrupted
// resolutions never leave partial state behind.
func (e *Engine) commit(ctx context.Context, scope, rawQuery, answer string) {
	if e.cache == nil {
		return
	}
	if ctx.Err() != nil {
		return
	}
	if !cache.ShouldCache(answer) {
		return
	}
	e.cache.Set(scope, rawQuery, answer)
}

func (e *Engine) record(rec usage.Record) {
	if e.tracker != nil {
		e.tracker.Record(rec)
	}
}

func boolLabel(b bool) string {
	if b {
		return "ok"
	}
	return "error"
}
