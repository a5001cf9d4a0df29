// Package api provides the HTTP surface of the flow execution engine.
//
// The message-transport layer invokes the engine through these endpoints:
// one inbound chat message maps to one POST /v1/step call. Flow validation,
// conversation inspection and history listing support the surrounding
// dashboard tooling.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/atendify/flowengine/internal/flow"
	"github.com/atendify/flowengine/internal/metric"
	"github.com/atendify/flowengine/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds API server configuration.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the conversation runner and store behind HTTP handlers.
type Server struct {
	runner *flow.Runner
	store  store.Store
	addr   string
}

// NewServer creates an API server around the runner and store.
func NewServer(runner *flow.Runner, st store.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{runner: runner, store: st, addr: cfg.Addr}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/step", s.stepHandler)
	mux.HandleFunc("/v1/flows/validate", s.validateFlowHandler)
	mux.HandleFunc("/v1/conversations", s.conversationHandler)
	mux.HandleFunc("/v1/history", s.historyHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", metric.Handler())
	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("API server shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
