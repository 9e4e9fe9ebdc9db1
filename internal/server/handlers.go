package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dynastybot/dynasty-ai/internal/engine"
	"github.com/dynastybot/dynasty-ai/internal/metrics"
	"github.com/dynastybot/dynasty-ai/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

// handleQuery resolves one query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}

	requestID := uuid.New().String()
	answer, err := s.engine.Resolve(r.Context(), req.Scope, req.Query)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidScope) {
			writeError(w, http.StatusBadRequest, "invalid scope identifier")
			return
		}
		// The engine degrades internally; anything else is unexpected.
		s.logger.Error("query resolution failed",
			zap.String("request_id", requestID),
			zap.String("scope", req.Scope),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "resolution failed")
		return
	}

	writeJSON(w, http.StatusOK, types.QueryResponse{
		RequestID: requestID,
		Scope:     req.Scope,
		Answer:    answer,
		Timestamp: time.Now().Unix(),
	})
}

// handleCacheStats reports cache counters.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cache == nil {
		writeError(w, http.StatusNotFound, "caching is disabled")
		return
	}

	stats := s.cache.Stats()
	writeJSON(w, http.StatusOK, types.CacheStatsResponse{
		Hits:           stats.Hits,
		Misses:         stats.Misses,
		Size:           stats.Size,
		Capacity:       stats.Capacity,
		HitRatePercent: stats.HitRatePercent,
	})
}

// handleCacheInvalidate drops cached answers for a scope.
func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cache == nil {
		writeError(w, http.StatusNotFound, "caching is disabled")
		return
	}

	var req types.InvalidateCacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if !engine.ValidScope(req.Scope) {
		writeError(w, http.StatusBadRequest, "invalid scope identifier")
		return
	}

	n := s.cache.Invalidate(req.Prefix, req.Scope)
	metrics.CacheInvalidations.WithLabelValues("manual").Add(float64(n))
	s.logger.Info("cache invalidated",
		zap.String("scope", req.Scope),
		zap.String("prefix", req.Prefix),
		zap.Int("entries", n))
	writeJSON(w, http.StatusOK, types.InvalidateCacheResponse{Invalidated: n})
}

// handleUsageSummary reports aggregated usage.
func (s *Server) handleUsageSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Summary())
}

// handleUsageReset clears in-memory usage records.
func (s *Server) handleUsageReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.tracker.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleTeams lists or mutates team assignments.
func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		scope := r.URL.Query().Get("scope")
		if !engine.ValidScope(scope) {
			writeError(w, http.StatusBadRequest, "invalid scope identifier")
			return
		}
		teams, err := s.store.ListTeams(r.Context(), scope)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("listing teams: %v", err))
			return
		}
		out := make([]types.TeamAssignment, 0, len(teams))
		for _, t := range teams {
			out = append(out, types.TeamAssignment{Team: t.Team, Owner: t.Owner})
		}
		writeJSON(w, http.StatusOK, map[string]any{"teams": out, "count": len(out)})

	case http.MethodPost:
		var req types.AssignTeamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
			return
		}
		if !engine.ValidScope(req.Scope) {
			writeError(w, http.StatusBadRequest, "invalid scope identifier")
			return
		}
		if strings.TrimSpace(req.Team) == "" {
			writeError(w, http.StatusBadRequest, "team cannot be empty")
			return
		}
		if err := s.store.AssignTeam(r.Context(), req.Scope, req.Team, req.Owner); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("assigning team: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "assigned"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSetRecord upserts an owner's season record.
func (s *Server) handleSetRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.SetRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if !engine.ValidScope(req.Scope) {
		writeError(w, http.StatusBadRequest, "invalid scope identifier")
		return
	}
	if req.Wins < 0 || req.Losses < 0 {
		writeError(w, http.StatusBadRequest, "wins and losses cannot be negative")
		return
	}
	if err := s.store.SetRecord(r.Context(), req.Scope, req.Owner, req.Wins, req.Losses); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("setting record: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleSetPoints upserts an owner's attribute point balance.
func (s *Server) handleSetPoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.SetPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if !engine.ValidScope(req.Scope) {
		writeError(w, http.StatusBadRequest, "invalid scope identifier")
		return
	}
	if err := s.store.SetPoints(r.Context(), req.Scope, req.Owner, req.Points); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("setting points: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
