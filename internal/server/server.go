package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"scribed/internal/config"
	"scribed/internal/fetch"
	"scribed/internal/logging"
	"scribed/internal/queue"
)

// Server is the HTTP front door for job submission and polling.
type Server struct {
	cfg     *config.Config
	store   *queue.Store
	gateway *fetch.Gateway
	logger  *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer wires the front door against the job store and fetch gateway.
func NewServer(cfg *config.Config, store *queue.Store, gateway *fetch.Gateway, logger *slog.Logger) *Server {
	srv := &Server{
		cfg:     cfg,
		store:   store,
		gateway: gateway,
		logger:  logging.NewComponentLogger(logger, "api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/transcribe", srv.handleTranscribe)
	mux.HandleFunc("/api/result/", srv.handleResult)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/healthz", srv.handleHealthz)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the route mux for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving on the configured bind address. The server shuts
// down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Paths.APIBind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listen address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
