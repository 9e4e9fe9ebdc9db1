package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query resolution metrics for production monitoring
var (
	// Resolution metrics
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynasty_ai_queries_total",
			Help: "Total number of queries resolved",
		},
		[]string{"path", "status"}, // path: cache/pattern/synthesis
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dynasty_ai_query_duration_seconds",
			Help:    "Query resolution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"path"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dynasty_ai_cache_hits_total",
			Help: "Total number of answer cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dynasty_ai_cache_misses_total",
			Help: "Total number of answer cache misses",
		},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynasty_ai_cache_invalidations_total",
			Help: "Total number of cache entries invalidated",
		},
		[]string{"reason"}, // reason: mutation/manual
	)

	// Pattern router metrics
	PatternMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynasty_ai_pattern_matches_total",
			Help: "Total number of pattern router matches",
		},
		[]string{"intent", "dispatched"},
	)

	// LLM metrics
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynasty_ai_llm_requests_total",
			Help: "Total number of LLM API requests",
		},
		[]string{"model", "tier", "status"},
	)

	LLMTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynasty_ai_llm_tokens_total",
			Help: "Total number of LLM tokens consumed",
		},
		[]string{"model", "type"}, // type: input/output
	)

	LLMCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynasty_ai_llm_cost_usd_total",
			Help: "Total LLM cost in USD",
		},
		[]string{"model"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dynasty_ai_llm_request_duration_seconds",
			Help:    "LLM request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"model"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dynasty_ai_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WebSocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynasty_ai_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: inbound/outbound
	)
)
