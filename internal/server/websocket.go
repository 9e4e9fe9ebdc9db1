package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dynastybot/dynasty-ai/internal/engine"
	"github.com/dynastybot/dynasty-ai/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 30 * time.Second
	wsMaxMessageSize = 4096
)

// wsQueryRequest is the inbound frame.
type wsQueryRequest struct {
	Scope string `json:"scope"`
	Query string `json:"query"`
}

// wsQueryResponse is the outbound frame.
type wsQueryResponse struct {
	Type      string `json:"type"` // "answer" or "error"
	RequestID string `json:"request_id"`
	Scope     string `json:"scope,omitempty"`
	Answer    string `json:"answer,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// wsConnection wraps a websocket with a write lock so the resolver
// goroutine and the ping loop never interleave frames.
type wsConnection struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConnection) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConnection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// originAllowed checks the Origin header against the configured list.
// An empty list or a "*" entry allows every origin; same-host requests
// (no Origin header) are always allowed.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := s.config.Server.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// handleWebSocket upgrades the connection and resolves queries until
// the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originAllowed,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ws := &wsConnection{conn: conn}
	metrics.WebSocketConnections.Inc()
	s.logger.Info("websocket connected", zap.String("remote", r.RemoteAddr))

	defer func() {
		metrics.WebSocketConnections.Dec()
		conn.Close()
		s.logger.Info("websocket disconnected", zap.String("remote", r.RemoteAddr))
	}()

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// Heartbeat
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ws.ping(); err != nil {
					return
				}
			case <-done:
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()

	for {
		var req wsQueryRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		metrics.WebSocketMessagesTotal.WithLabelValues("received").Inc()

		requestID := uuid.New().String()
		answer, err := s.engine.Resolve(r.Context(), req.Scope, req.Query)
		resp := wsQueryResponse{
			RequestID: requestID,
			Scope:     req.Scope,
			Timestamp: time.Now().Unix(),
		}
		switch {
		case errors.Is(err, engine.ErrInvalidScope):
			resp.Type = "error"
			resp.Error = "invalid scope identifier"
		case err != nil:
			resp.Type = "error"
			resp.Error = "resolution failed"
			s.logger.Error("websocket resolution failed",
				zap.String("request_id", requestID), zap.Error(err))
		default:
			resp.Type = "answer"
			resp.Answer = answer
		}

		if err := ws.writeJSON(resp); err != nil {
			s.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
		metrics.WebSocketMessagesTotal.WithLabelValues("sent").Inc()
	}
}
