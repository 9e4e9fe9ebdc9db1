// Package usage tracks per-operation resolution accounting.
//
// Responsibilities:
//   - Append-only in-memory record log
//   - Aggregated per-operation summaries
//   - Model pricing and cost computation
//   - Mirror counters to prometheus
//   - Optional persistence across restarts
package usage

import (
	"sync"
	"time"

	"github.com/dynastybot/dynasty-ai/internal/metrics"
	"go.uber.org/zap"
)

// Pricing per 1M tokens, USD.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var pricingTable = map[string]modelPricing{
	"gpt-4o":      {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini": {InputPerMillion: 0.15, OutputPerMillion: 0.60},
}

// CostFor computes the USD cost of a call. Unknown models cost zero;
// the stub provider and cache hits fall through here.
func CostFor(model string, inputTokens, outputTokens int) float64 {
	p, ok := pricingTable[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
}

// Record is one resolution's accounting entry.
type Record struct {
	Operation    string
	ModelTier    string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	DurationMS   int64
	CacheHit     bool
	Timestamp    time.Time
}

// OperationSummary aggregates records sharing an operation name.
type OperationSummary struct {
	Count        int     `json:"count"`
	CacheHits    int     `json:"cache_hits"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Summary is the full tracker state at a point in time.
type Summary struct {
	TotalCount   int                         `json:"total_count"`
	TotalCostUSD float64                     `json:"total_cost_usd"`
	ByOperation  map[string]OperationSummary `json:"by_operation"`
}

// Persister stores records durably. Implementations must tolerate
// being called concurrently.
type Persister interface {
	PersistUsage(rec Record) error
}

// Tracker accumulates usage records. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	records []Record

	persister Persister
	logger    *zap.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPersister durably stores each record as it arrives.
func WithPersister(p Persister) Option {
	return func(t *Tracker) { t.persister = p }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record appends an entry. Cost is computed from the pricing table when
// the caller left it zero and token counts are present. Persistence
// failures are logged, never surfaced — accounting must not break
// resolution.
func (t *Tracker) Record(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.CostUSD == 0 && rec.Model != "" {
		rec.CostUSD = CostFor(rec.Model, rec.InputTokens, rec.OutputTokens)
	}

	t.mu.Lock()
	t.records = append(t.records, rec)
	t.mu.Unlock()

	t.mirror(rec)

	if t.persister != nil {
		if err := t.persister.PersistUsage(rec); err != nil {
			t.logger.Warn("persisting usage record failed",
				zap.String("operation", rec.Operation),
				zap.Error(err))
		}
	}
}

// mirror pushes the record into prometheus counters.
func (t *Tracker) mirror(rec Record) {
	if rec.Model != "" {
		metrics.LLMTokensUsed.WithLabelValues(rec.Model, "input").Add(float64(rec.InputTokens))
		metrics.LLMTokensUsed.WithLabelValues(rec.Model, "output").Add(float64(rec.OutputTokens))
		metrics.LLMCostUSD.WithLabelValues(rec.Model).Add(rec.CostUSD)
	}
	if rec.CacheHit {
		metrics.CacheHits.Inc()
	}
}

// Summary aggregates all recorded entries by operation.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{ByOperation: make(map[string]OperationSummary)}
	for _, rec := range t.records {
		op := s.ByOperation[rec.Operation]
		op.Count++
		if rec.CacheHit {
			op.CacheHits++
		}
		op.InputTokens += rec.InputTokens
		op.OutputTokens += rec.OutputTokens
		op.CostUSD += rec.CostUSD
		s.ByOperation[rec.Operation] = op

		s.TotalCount++
		s.TotalCostUSD += rec.CostUSD
	}
	return s
}

// Reset discards all in-memory records. Persisted history is untouched.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.records = nil
	t.mu.Unlock()
}
