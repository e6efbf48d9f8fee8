// Package dashboard serves the operator HTTP API: read-only status snapshots, a
// websocket stats stream, Prometheus metrics and two control endpoints.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alejandrodnm/arbishark/internal/adapters/logbuf"
	"github.com/alejandrodnm/arbishark/internal/domain"
	"github.com/alejandrodnm/arbishark/internal/ports"
)

const defaultLogLimit = 100

// Instrumentation is the part of the metrics adapter the server uses.
type Instrumentation interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
	ClientConnected()
	ClientDisconnected()
}

// LogSource returns the newest captured log entries.
type LogSource interface {
	Tail(n int) []logbuf.Entry
}

// Config controls the HTTP server.
type Config struct {
	Addr       string
	WSInterval time.Duration
}

// Server is the dashboard HTTP server.
type Server struct {
	cfg     Config
	status  ports.StatusReader
	control ports.Controller
	logs    LogSource
	metrics Instrumentation
	hub     *WSHub
	srv     *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithLogs exposes a log buffer at GET /api/logs.
func WithLogs(l LogSource) Option {
	return func(s *Server) { s.logs = l }
}

// WithMetrics mounts /metrics and instruments every route.
func WithMetrics(m Instrumentation) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds the server. control may be nil for a read-only dashboard.
func New(cfg Config, status ports.StatusReader, control ports.Controller, opts ...Option) *Server {
	if cfg.WSInterval <= 0 {
		cfg.WSInterval = 2 * time.Second
	}
	s := &Server{cfg: cfg, status: status, control: control, hub: NewWSHub()}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics != nil {
		s.hub.onConnect = s.metrics.ClientConnected
		s.hub.onDisconnect = s.metrics.ClientDisconnected
	}
	return s
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	// CORS middleware for a dashboard served from another origin.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/trades", s.handleTrades)
		r.Get("/exits", s.handleExits)
		r.Get("/risk", s.handleRisk)
		r.Get("/budget", s.handleBudget)
		r.Get("/logs", s.handleLogs)
		r.Get("/ws", s.hub.HandleWS(s.statsMessage))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(10 * time.Second))
			r.Post("/permission", s.handlePermission)
			r.Post("/circuit-breaker", s.handleCircuitBreaker)
		})
	})
	return r
}

// Run serves until ctx is done, pushing stats to websocket clients every
// WSInterval, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)
	go s.pushStats(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("dashboard listening", "addr", s.cfg.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("shutting down dashboard...")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) pushStats(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.WSInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.hub.Clients() == 0 {
				continue
			}
			msg := s.statsMessage()
			s.hub.Broadcast(msg.Type, msg.Data)
		}
	}
}

// StatsPush is the payload streamed over /api/ws.
type StatsPush struct {
	Stats  domain.DashboardStats `json:"stats"`
	Risk   domain.RiskStatus     `json:"risk"`
	Budget domain.BudgetSnapshot `json:"budget"`
}

func (s *Server) statsMessage() WSMessage {
	return WSMessage{
		Type: "stats",
		At:   time.Now().UnixMilli(),
		Data: StatsPush{Stats: s.status.Stats(), Risk: s.status.Risk(), Budget: s.status.Budget()},
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "arbishark",
		"connected": s.status.Stats().Connected,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Stats())
}

func (s *Server) handleTrades(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Trades())
}

// handleExits returns closed positions, newest last. ?limit=N keeps the last N.
func (s *Server) handleExits(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 0)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	exits := s.status.Exits()
	if limit > 0 && limit < len(exits) {
		exits = exits[len(exits)-limit:]
	}
	writeJSON(w, http.StatusOK, exits)
}

func (s *Server) handleRisk(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Risk())
}

func (s *Server) handleBudget(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Budget())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}
	limit, err := queryLimit(r, defaultLogLimit)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.logs.Tail(limit))
}

// PermissionRequest is the JSON body for POST /api/permission.
type PermissionRequest struct {
	PermissionID string  `json:"permission_id"`
	DailyLimit   float64 `json:"daily_limit"`
	Revoked      bool    `json:"revoked"`
}

func (s *Server) handlePermission(w http.ResponseWriter, r *http.Request) {
	if s.control == nil {
		writeError(w, "dashboard is read-only", http.StatusForbidden)
		return
	}
	var req PermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Revoked {
		s.control.RevokePermission()
		writeJSON(w, http.StatusOK, s.status.Budget())
		return
	}
	if req.PermissionID == "" {
		writeError(w, "permission_id is required", http.StatusBadRequest)
		return
	}
	if req.DailyLimit < 0 {
		writeError(w, "daily_limit must not be negative", http.StatusBadRequest)
		return
	}
	s.control.GrantPermission(req.PermissionID, req.DailyLimit)
	writeJSON(w, http.StatusOK, s.status.Budget())
}

// CircuitBreakerRequest is the JSON body for POST /api/circuit-breaker.
type CircuitBreakerRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) handleCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if s.control == nil {
		writeError(w, "dashboard is read-only", http.StatusForbidden)
		return
	}
	var req CircuitBreakerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		writeError(w, "body must be {\"active\": true|false}", http.StatusBadRequest)
		return
	}
	s.control.SetCircuitBreaker(*req.Active)
	writeJSON(w, http.StatusOK, s.status.Risk())
}

// --- helpers ---

func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
