// Package server exposes the unfollow batch over a small local HTTP API so
// a web page can start a run with the list it computed.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"igunfollow/pkg/batch"
	"igunfollow/pkg/logger"
)

// RunnerFactory builds the runner for one batch. log already carries the
// batch id.
type RunnerFactory func(log logger.Logger) *batch.Runner

// Options configures a Server
type Options struct {
	Host string
	Port int

	// ShutdownTimeout bounds how long in-flight requests get on shutdown
	ShutdownTimeout time.Duration
}

type unfollowRequest struct {
	Usernames []string `json:"usernames"`
}

// Server accepts username lists and runs each as a background batch. Batches
// are independent; two overlapping requests run two batches side by side.
type Server struct {
	opts      Options
	newRunner RunnerFactory
	metrics   *Metrics
	logger    logger.Logger
	engine    *gin.Engine

	// baseCtx is the parent of every batch; cancelling it stops them all
	baseCtx context.Context
	cancel  context.CancelFunc
	batches sync.WaitGroup
}

// New creates a Server
func New(opts Options, newRunner RunnerFactory, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		opts:      opts,
		newRunner: newRunner,
		metrics:   NewMetrics(),
		logger:    log.WithField("component", "server"),
		baseCtx:   baseCtx,
		cancel:    cancel,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), loggerMiddleware(s.logger), corsMiddleware())

	r.GET("/", s.handleStatus)
	r.POST("/", s.handleUnfollow)
	r.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return r
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr is the host:port the server binds
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) handleUnfollow(c *gin.Context) {
	var req unfollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	usernames := batch.NormalizeUsernames(req.Usernames)
	if len(usernames) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No usernames provided"})
		return
	}

	s.startBatch(usernames)
	c.JSON(http.StatusOK, gin.H{"started": true, "count": len(usernames)})
}

// startBatch runs usernames on its own goroutine and returns at once
func (s *Server) startBatch(usernames []string) {
	batchID := uuid.NewString()
	log := s.logger.WithField("batch_id", batchID)

	runner := s.newRunner(log)
	runner.OnResult = func(_ string, err error) {
		s.metrics.ObserveUnfollow(err)
	}

	s.metrics.batchesStarted.Inc()
	s.metrics.batchesRunning.Inc()
	s.batches.Add(1)

	log.InfoWithFields("Batch accepted", map[string]interface{}{
		"count": len(usernames),
	})

	go func() {
		defer s.batches.Done()
		defer s.metrics.batchesRunning.Dec()
		runner.Run(s.baseCtx, usernames)
	}()
}

// Wait blocks until every batch started so far has returned
func (s *Server) Wait() {
	s.batches.Wait()
}

// ListenAndServe binds Addr and serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then stops accepting requests,
// cancels running batches and waits for them to return
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.LogComponentStart("server", map[string]interface{}{
		"addr": ln.Addr().String(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)

		s.cancel()
		s.batches.Wait()
		return err
	})

	err := g.Wait()
	logger.LogComponentStop("server", "context done")
	return err
}
