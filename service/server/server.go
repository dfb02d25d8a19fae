package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mpalomar/rescata/service/config"
	"github.com/mpalomar/rescata/service/db"
	"github.com/mpalomar/rescata/service/metrics"
	"github.com/mpalomar/rescata/service/nats"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server for the contract rescue registry.
type Server struct {
	addr      string
	cfg       *config.Config
	store     *db.Store
	publisher nats.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The publisher is optional - if nil, no events are published on writes.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, cfg *config.Config, store *db.Store, publisher nats.Publisher, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:      addr,
		cfg:       cfg,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Contract routes
	mux.Handle("POST /contracts", s.instrument("/contracts", handleCreateContract(s.store, s.logger)))
	mux.Handle("GET /contracts/{owner}", s.instrument("/contracts/{owner}", handleListContractsByOwner(s.store, s.logger)))

	// Transaction routes
	mux.Handle("POST /transactions", s.instrument("/transactions", handleCreateTransaction(s.store, s.publisher, s.logger)))
	mux.Handle("GET /transactions/{contractAddress}", s.instrument("/transactions/{contractAddress}", handleListTransactionsByContract(s.store, s.logger)))

	// Rescue routes
	mux.Handle("POST /rescues", s.instrument("/rescues", handleCreateRescue(s.store, s.publisher, s.logger)))
	mux.Handle("GET /rescues/{owner}", s.instrument("/rescues/{owner}", handleListRescuesByOwner(s.store, s.logger)))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Request logging runs before routing; CORS wraps everything.
	handler := corsMiddleware(loggingMiddleware(s.logger)(mux))

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var err error
	if s.cfg != nil && s.cfg.TLSEnabled() {
		s.logger.Info("starting HTTPS server", "addr", s.addr, "cert", s.cfg.TLSCertFile)
		err = s.server.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	} else {
		s.logger.Warn("TLS not configured, starting plain HTTP server", "addr", s.addr)
		err = s.server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// instrument wraps a handler with HTTP metrics collection when configured.
func (s *Server) instrument(name string, h http.Handler) http.Handler {
	if s.metrics == nil {
		return h
	}
	return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
