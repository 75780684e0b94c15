// Package server provides the HTTP server of the vault analysis service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/vaultjudge/internal/server/api"
	"github.com/ayusman/vaultjudge/internal/store"
)

// shutdownTimeout bounds how long in-flight requests may run after the server is stopped.
const shutdownTimeout = 10 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Processor api.Processor
	Toggle    api.Toggle
	Live      *LiveHub
	TLSCert   string
	TLSKey    string
	Logger    zerolog.Logger
}

// Server represents the HTTP server of the application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger zerolog.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: config.Logger.With().Str("component", "server").Logger(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		athletes := api.NewAthleteHandler(s.config.Store, s.logger)
		s.mux.Handle("/api/athletes", athletes)
		s.mux.Handle("/api/athletes/", athletes)

		videos := api.NewVideoHandler(s.config.Store, s.logger)
		s.mux.Handle("/api/videos/", videos)

		s.mux.Handle("/api/jobs/", api.NewJobHandler(s.config.Store, s.logger))
	}

	if s.config.Processor != nil {
		s.mux.Handle("/process_video", api.NewProcessHandler(s.config.Processor, s.logger))
	}

	if s.config.Toggle != nil {
		s.mux.Handle("/api/analysis", api.NewAnalysisHandler(s.config.Toggle))
	}

	if s.config.Live != nil {
		s.mux.Handle("/api/live", s.config.Live)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is cancelled, using TLS when a certificate and key
// are configured. A cancelled context is not reported as an error.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		tls := s.config.TLSCert != "" && s.config.TLSKey != ""
		s.logger.Info().Str("addr", addr).Bool("tls", tls).Msg("listening")
		if tls {
			errCh <- srv.ListenAndServeTLS(s.config.TLSCert, s.config.TLSKey)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
