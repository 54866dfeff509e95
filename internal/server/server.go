// Package server exposes graph clustering as an asynchronous HTTP API.
//
// A POST /v1/cluster request is validated, turned into a graph and queued as
// a task; clients poll GET /v1/tasks/{id} until the task completes.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sanonone/kektorgraph/internal/config"
	"github.com/sanonone/kektorgraph/internal/logger"
)

// pruneInterval is how often finished tasks older than the TTL are dropped.
const pruneInterval = time.Minute

// Server holds the HTTP interface and the running clustering tasks.
type Server struct {
	cfg config.Config
	log *zap.Logger

	httpServer  *http.Server
	taskManager *TaskManager
	limiter     *rate.Limiter

	// jobs is cancelled on shutdown; every task goroutine derives from it.
	jobs       context.Context
	cancelJobs context.CancelFunc
	wg         sync.WaitGroup
}

// NewServer builds the router. The configuration must already be valid.
func NewServer(cfg config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.Server.RateLimit > 0 {
		limit = rate.Limit(cfg.Server.RateLimit)
	}

	s := &Server{
		cfg:         cfg,
		log:         log.Named("server"),
		taskManager: NewTaskManager(),
		limiter:     rate.NewLimiter(limit, cfg.Server.RateBurst),
	}
	s.jobs, s.cancelJobs = context.WithCancel(context.Background())

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// routes chains the middlewares: Recovery -> Logging -> Auth -> handlers.
// Recovery is outer-most so it catches everything.
func (s *Server) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(s.RecoveryMiddleware)
	router.Use(s.LoggingMiddleware)

	router.Get("/healthz", s.handleHealthz)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(s.rateLimitMiddleware).Post("/cluster", s.handleClusterSubmit)
		r.Get("/tasks/{id}", s.handleGetTask)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeHTTPError(w, http.StatusNotFound, "endpoint not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return router
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", zap.String(logger.FieldAddress, l.Addr().String()))
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "HTTP server failed")
			return
		}
		errCh <- nil
	}()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			s.cancelJobs()
			s.wg.Wait()
			return err
		case <-ticker.C:
			if n := s.taskManager.Prune(s.cfg.Server.TaskTTL); n > 0 {
				s.log.Debug("pruned finished tasks", zap.Int("count", n))
			}
		case <-ctx.Done():
			return s.Shutdown()
		}
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.Server.Addr)
	}
	return s.Serve(ctx, l)
}

// Shutdown stops accepting requests, cancels running tasks and waits for
// them to exit.
func (s *Server) Shutdown() error {
	s.log.Info("starting graceful shutdown of HTTP server")

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.cancelJobs()
	s.wg.Wait()
	if err != nil {
		return errors.Wrap(err, "HTTP server shutdown")
	}
	return nil
}
