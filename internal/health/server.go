package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/john/chatbridge/internal/bridge"
)

// StatsFunc reports the bridge counters served on /stats
type StatsFunc func() bridge.Stats

// Server provides HTTP health check and stats endpoints
type Server struct {
	server  *http.Server
	stats   StatsFunc
	started time.Time
	logger  *slog.Logger
}

type statsResponse struct {
	bridge.Stats
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// New creates a new health check server
func New(addr string, stats StatsFunc, logger *slog.Logger) *Server {
	s := &Server{
		stats:   stats,
		started: time.Now(),
		logger:  logger.With("component", "health"),
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		resp := statsResponse{UptimeSeconds: int64(time.Since(s.started).Seconds())}
		if s.stats != nil {
			resp.Stats = s.stats()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			s.logger.Error("encode stats", "error", err)
		}
	})

	return mux
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("health check server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down health check server")
	return s.server.Shutdown(ctx)
}
