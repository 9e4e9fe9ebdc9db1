// Package server exposes the query resolution engine over HTTP and
// WebSocket.
//
// Responsibilities:
//   - Wire the engine from configuration (cache, router, retrieval,
//     synthesis, usage, state store)
//   - REST endpoints for query resolution, league state mutations,
//     cache stats, and usage summaries
//   - WebSocket endpoint for interactive sessions
//   - Prometheus metrics and health endpoints
//   - Graceful shutdown
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dynastybot/dynasty-ai/internal/cache"
	"github.com/dynastybot/dynasty-ai/internal/config"
	"github.com/dynastybot/dynasty-ai/internal/engine"
	"github.com/dynastybot/dynasty-ai/internal/llm/adapter"
	"github.com/dynastybot/dynasty-ai/internal/middleware"
	"github.com/dynastybot/dynasty-ai/internal/patterns"
	"github.com/dynastybot/dynasty-ai/internal/retrieval"
	"github.com/dynastybot/dynasty-ai/internal/store"
	"github.com/dynastybot/dynasty-ai/internal/synthesis"
	"github.com/dynastybot/dynasty-ai/internal/usage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultRateLimit caps query requests per client per minute.
const DefaultRateLimit = 60

// Server hosts the query resolution API.
type Server struct {
	config *config.Config
	logger *zap.Logger

	engine  *engine.Engine
	cache   *cache.QueryCache
	store   *store.Store
	tracker *usage.Tracker
	limiter *middleware.RateLimiter

	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
}

// NewServer wires all components from configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		config:  cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		limiter: middleware.NewRateLimiter(DefaultRateLimit),
	}

	if err := srv.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}
	return srv, nil
}

// initializeComponents builds the resolution pipeline.
func (s *Server) initializeComponents() error {
	cfg := s.config

	// 1. League state store
	st, err := store.Open(cfg.Database.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	s.store = st

	// 2. Answer cache (optional)
	if cfg.Cache.Enabled {
		s.cache = cache.New(cfg.Cache.Capacity, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		st.SetInvalidator(s.cache)
	}

	// 3. Retrieval
	retriever, err := retrieval.NewRetriever(
		&retrieval.FileLoader{Path: cfg.Retrieval.CorpusPath},
		cfg.Retrieval.CharBudget,
	)
	if err != nil {
		return fmt.Errorf("failed to load documentation corpus: %w", err)
	}

	// 4. Generation provider
	provider, err := adapter.NewProvider(&adapter.Config{
		Provider:     cfg.LLM.Provider,
		APIKey:       cfg.LLM.APIKey,
		SimpleModel:  cfg.LLM.SimpleModel,
		ComplexModel: cfg.LLM.ComplexModel,
		BaseURL:      cfg.LLM.BaseURL,
		MaxRetries:   cfg.LLM.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	// 5. Usage tracker
	trackerOpts := []usage.Option{usage.WithLogger(s.logger)}
	if cfg.Usage.Persist {
		trackerOpts = append(trackerOpts, usage.WithPersister(st))
	}
	s.tracker = usage.NewTracker(trackerOpts...)

	// 6. Engine
	s.engine = engine.New(engine.Deps{
		Cache:       s.cache,
		Router:      patterns.NewDefaultRouter(cfg.Router.MatchThreshold, st),
		Retriever:   retriever,
		Synthesizer: synthesis.New(provider,
			synthesis.WithTierThreshold(cfg.Synthesis.TierThreshold),
			synthesis.WithMaxOutputTokens(cfg.Synthesis.MaxOutputTokens),
			synthesis.WithLogger(s.logger)),
		Tracker: s.tracker,
		Logger:  s.logger,
	})

	return nil
}

// Handler builds the HTTP handler tree. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHandlers(mux)
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("starting HTTP server",
			zap.String("host", s.config.Server.Host),
			zap.Int("port", s.config.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.logger.Info("dynasty-ai server started",
		zap.String("llm_provider", s.config.LLM.Provider),
		zap.Bool("llm_configured", s.config.LLM.Configured),
		zap.Bool("cache_enabled", s.config.Cache.Enabled),
		zap.Float64("match_threshold", s.config.Router.MatchThreshold))
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("stopping dynasty-ai server")

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("error shutting down HTTP server", zap.Error(err))
		}
	}

	s.cancel()
	s.wg.Wait()
	s.limiter.Stop()

	if err := s.store.Close(); err != nil {
		s.logger.Warn("error closing state store", zap.Error(err))
	}

	s.logger.Info("dynasty-ai server stopped")
	return nil
}

// Wait blocks until the server is stopped.
func (s *Server) Wait() {
	<-s.ctx.Done()
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// registerHandlers registers HTTP handlers.
func (s *Server) registerHandlers(mux *http.ServeMux) {
	// Health checks
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)

	// Query resolution
	mux.HandleFunc("/api/v1/query", s.limiter.Middleware(s.handleQuery))

	// Cache administration
	mux.HandleFunc("/api/v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/api/v1/cache/invalidate", s.handleCacheInvalidate)

	// Usage accounting
	mux.HandleFunc("/api/v1/usage/summary", s.handleUsageSummary)
	mux.HandleFunc("/api/v1/usage/reset", s.handleUsageReset)

	// League state
	mux.HandleFunc("/api/v1/teams", s.handleTeams)
	mux.HandleFunc("/api/v1/records", s.handleSetRecord)
	mux.HandleFunc("/api/v1/points", s.handleSetPoints)

	// Interactive sessions
	mux.HandleFunc("/ws/query", s.handleWebSocket)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

// handleReady handles readiness check requests.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ready := s.engine != nil && s.store.Ping(r.Context()) == nil

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not_ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}
