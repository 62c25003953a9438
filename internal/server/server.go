// Package server exposes the builder over HTTP: one-shot generation, a
// websocket progress stream, file browsing, zip download and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/metrics"
	"github.com/Saurav134/Agentic-Project-Builder/internal/pipeline"
	"github.com/Saurav134/Agentic-Project-Builder/internal/sandbox"
)

// ErrBusy is reported when a generation is already running for the root.
var ErrBusy = errors.New("a generation is already running")

// Generator runs the builder pipeline. *pipeline.Runner satisfies it.
type Generator interface {
	Run(ctx context.Context, prompt string, stepBudget int, observers ...pipeline.Observer) (pipeline.Result, error)
}

// Options configures a Server.
type Options struct {
	Port    int
	Origins []string
}

type Server struct {
	gen     Generator
	fs      *sandbox.FS
	metrics *metrics.Metrics
	logger  *zap.Logger
	origins map[string]struct{}

	// running admits one pipeline per project root.
	running  atomic.Bool
	upgrader websocket.Upgrader
	server   *http.Server
}

// New builds a server over gen and the project sandbox it writes to.
func New(gen Generator, fs *sandbox.FS, m *metrics.Metrics, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		gen:     gen,
		fs:      fs,
		metrics: m,
		logger:  logger,
		origins: make(map[string]struct{}, len(opts.Origins)),
	}
	for _, o := range opts.Origins {
		s.origins[o] = struct{}{}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.isAllowedOrigin(origin)
		},
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Addr is the listen address.
func (s *Server) Addr() string { return s.server.Addr }

func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info("api server listening", zap.String("addr", s.server.Addr), zap.String("root", s.fs.Root()))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// acquire claims the run slot without waiting.
func (s *Server) acquire() bool { return s.running.CompareAndSwap(false, true) }

func (s *Server) release() { s.running.Store(false) }
