// Package server exposes Intcode runs over Connect (HTTP/JSON).
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/store"
)

var log = commonlog.GetLogger("intcode.server")

// Server serves RunService on an HTTP mux.
type Server struct {
	pool    *Pool
	store   *store.Store
	service *RunService
	mux     *http.ServeMux
	http    *http.Server
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	workers int64
	store   *store.Store
	runOpts []intcode.Option
}

// WithWorkers sets how many programs may run concurrently.
func WithWorkers(n int64) Option {
	return func(c *serverConfig) { c.workers = n }
}

// WithStore enables result caching and run history backed by st.
func WithStore(st *store.Store) Option {
	return func(c *serverConfig) { c.store = st }
}

// WithRunOptions applies opts to every run, typically step and memory limits.
func WithRunOptions(opts ...intcode.Option) Option {
	return func(c *serverConfig) { c.runOpts = append(c.runOpts, opts...) }
}

// New creates a Server.
func New(opts ...Option) *Server {
	cfg := &serverConfig{workers: 4}
	for _, opt := range opts {
		opt(cfg)
	}

	pool := NewPool(cfg.workers)
	s := &Server{
		pool:    pool,
		store:   cfg.store,
		service: NewRunService(pool, cfg.store, cfg.runOpts...),
		mux:     http.NewServeMux(),
	}

	codec := connect.WithCodec(jsonCodec{})
	s.mux.Handle(RunProcedure, connect.NewUnaryHandler(RunProcedure, s.service.Run, codec))
	s.mux.Handle(DisassembleProcedure, connect.NewUnaryHandler(DisassembleProcedure, s.service.Disassemble, codec))
	s.mux.Handle(HistoryProcedure, connect.NewUnaryHandler(HistoryProcedure, s.service.History, codec))
	return s
}

// Handler returns the HTTP handler serving every procedure.
func (s *Server) Handler() http.Handler { return s.mux }

// Pool returns the server's worker pool.
func (s *Server) Pool() *Pool { return s.pool }

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Noticef("intcode server listening on %s", addr)
	log.Infof("  Connect (HTTP/JSON): http://%s%s", addr, RunProcedure)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s: %w", addr, err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for running programs to
// finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.pool.Drain(ctx)
}
