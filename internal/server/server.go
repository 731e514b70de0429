// Package server hosts a two-player match: it admits peers over TCP or
// WebSocket, merges their inputs into one authoritative game state and
// broadcasts every change to both players.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/config"
	"github.com/yourusername/duelnet/internal/game"
	"github.com/yourusername/duelnet/internal/metrics"
	"github.com/yourusername/duelnet/internal/protocol"
)

// Server is one match host
type Server struct {
	cfg         config.Server
	store       *game.Store
	broadcaster *Broadcaster
	metrics     *metrics.Metrics
	logger      *zap.Logger

	wg sync.WaitGroup

	mu   sync.Mutex
	http *http.Server
}

// Option customizes a Server
type Option func(*Server)

// WithMetrics uses m instead of a fresh set of collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a server for cfg
func New(cfg config.Server, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		store:  game.NewStore(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(metrics.WithNamespace(cfg.MetricsNamespace))
	}
	s.broadcaster = NewBroadcaster(s.store, s.metrics, logger)
	return s
}

// ListenAndServe listens on the configured TCP address, and on HTTPAddr for
// the WebSocket bridge when one is set, until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}

	httpErr := make(chan error, 1)
	if s.cfg.HTTPAddr != "" {
		hs := &http.Server{
			Addr:              s.cfg.HTTPAddr,
			Handler:           s.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.mu.Lock()
		s.http = hs
		s.mu.Unlock()

		go func() {
			s.logger.Info("http listening", zap.String("addr", hs.Addr))
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpErr <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Serve(serveCtx, ln) }()

	select {
	case <-ctx.Done():
		cancel()
		err = <-serveErr
	case err = <-httpErr:
		cancel()
		<-serveErr
	case err = <-serveErr:
		cancel()
	}

	// Serve has returned, so no more TCP peers can be added to the wait group.
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if serr := s.Shutdown(shutdownCtx); err == nil {
		err = serr
	}
	return err
}

// Router serves the WebSocket bridge, metrics and a health check
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.HandleWebSocket)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "ok %d/%d\n", len(s.broadcaster.Active()), len(protocol.PlayerIDs))
	})
	return r
}

// Shutdown stops the HTTP server, closes every player connection and waits
// for their handlers to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hs := s.http
	s.mu.Unlock()

	var err error
	if hs != nil {
		err = hs.Shutdown(ctx)
	}

	s.broadcaster.closeAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

// Store is the authoritative game state
func (s *Server) Store() *game.Store { return s.store }

// Active lists the occupied slots
func (s *Server) Active() []protocol.PlayerID { return s.broadcaster.Active() }

func (s *Server) Metrics() *metrics.Metrics { return s.metrics }
