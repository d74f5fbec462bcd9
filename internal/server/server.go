package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nao1215/markcrawl/internal/crawler"
	"github.com/nao1215/markcrawl/internal/model"
	"github.com/nao1215/markcrawl/internal/pipeline"
)

const (
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultWriteTimeout is long because a crawl answers only when done.
	DefaultWriteTimeout = 5 * time.Minute

	// DefaultMaxRequestBody limits JSON request bodies.
	DefaultMaxRequestBody = 1 << 20
)

// Server serves the conversion API.
type Server struct {
	httpServer *http.Server

	// fetcher downloads pages for single conversions.
	fetcher pipeline.Fetcher

	// spider runs POST /crawl requests.
	spider *crawler.Spider

	// pageOptions selects the optional pipeline steps.
	pageOptions pipeline.PageOptions

	// defaults is the conversion config for GET requests and the base
	// that POST configs are decoded over.
	defaults model.ConvertConfig

	shutdownTimeout time.Duration
	maxRequestBody  int64
	logger          *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request logs and errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPageOptions sets the optional steps of the page pipeline.
func WithPageOptions(opts pipeline.PageOptions) Option {
	return func(s *Server) {
		s.pageOptions = opts
	}
}

// WithDefaultConvertConfig replaces the default conversion config.
func WithDefaultConvertConfig(cfg model.ConvertConfig) Option {
	return func(s *Server) {
		s.defaults = cfg
	}
}

// WithShutdownTimeout sets how long Run waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithMaxRequestBody limits the size of JSON request bodies.
func WithMaxRequestBody(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRequestBody = n
		}
	}
}

// New creates a Server listening on addr. fetcher serves single-page
// conversions and spider serves crawls.
func New(addr string, fetcher pipeline.Fetcher, spider *crawler.Spider, opts ...Option) *Server {
	s := &Server{
		fetcher:         fetcher,
		spider:          spider,
		defaults:        model.DefaultConvertConfig(),
		shutdownTimeout: DefaultShutdownTimeout,
		maxRequestBody:  DefaultMaxRequestBody,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	return s
}

// Handler returns the full handler chain: recovery, logging, headers and
// routing.
func (s *Server) Handler() http.Handler {
	return s.withRecovery(s.withLogging(s.withHeaders(http.HandlerFunc(s.route))))
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run listens on the configured address until ctx ends, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx ends, then shuts down
// gracefully. In-flight requests get the shutdown timeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
