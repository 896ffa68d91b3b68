// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/souq-assist/internal/logger"
	"github.com/jeranaias/souq-assist/internal/wire"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = "127.0.0.1:3000"

// ============================================================================
// OPTIONS
// ============================================================================

// Options configures the fixture server.
type Options struct {
	Addr           string
	RatePerSecond  float64 // 0 disables rate limiting
	Burst          int
	AllowedOrigins []string
	ChunkDelay     time.Duration // Pause between streamed lines
	Logger         logrus.FieldLogger
}

// ============================================================================
// SERVER STATS
// ============================================================================

// Stats counts handled chat requests.
type Stats struct {
	Requests  atomic.Int64
	Failures  atomic.Int64
	Rejected  atomic.Int64
	Streamed  atomic.Int64 // Events written
	StartTime time.Time
}

// Uptime returns how long the server has been running.
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the fixture chat endpoint.
type Server struct {
	opts     Options
	engine   *gin.Engine
	server   *http.Server
	scripter Scripter
	stats    *Stats
	log      logrus.FieldLogger
}

// New builds a server. A nil scripter uses DefaultScripter.
func New(opts Options, scripter Scripter) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Logger == nil {
		opts.Logger = logger.WithComponent("server")
	}
	if scripter == nil {
		scripter = DefaultScripter
	}

	s := &Server{
		opts:     opts,
		scripter: scripter,
		stats:    &Stats{StartTime: time.Now()},
		log:      opts.Logger,
	}
	s.engine = s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, for mounting or httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Stats returns the live request counters.
func (s *Server) Stats() *Stats {
	return s.stats
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(RecoveryMiddleware(s.log))
	router.Use(LoggingMiddleware(s.log))
	router.Use(CORSMiddleware(s.opts.AllowedOrigins))

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	api.Use(RateLimitMiddleware(NewRateLimiter(s.opts.RatePerSecond, s.opts.Burst), s.log))
	api.POST("/chat", s.handleChat)

	return router
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.stats.Rejected.Add(1)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.stats.Rejected.Add(1)
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	s.stats.Requests.Add(1)

	reply := s.scripter(req)
	if reply.Status != 0 && reply.Status != http.StatusOK {
		s.stats.Failures.Add(1)
		c.JSON(reply.Status, gin.H{"error": http.StatusText(reply.Status)})
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for _, ev := range reply.Events {
		if !s.pause(ctx) {
			return
		}
		if err := wire.WriteEvent(c.Writer, ev); err != nil {
			s.log.WithError(err).Warn("stream write failed")
			return
		}
		c.Writer.Flush()
		s.stats.Streamed.Add(1)
	}
	for _, line := range reply.Raw {
		if !s.pause(ctx) {
			return
		}
		fmt.Fprintln(c.Writer, line)
		c.Writer.Flush()
	}
}

// pause waits ChunkDelay, reporting false if the client went away.
func (s *Server) pause(ctx context.Context) bool {
	if s.opts.ChunkDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(s.opts.ChunkDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Requests int64  `json:"requests"`
	Failures int64  `json:"failures"`
	Rejected int64  `json:"rejected"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Uptime:   s.stats.Uptime().Round(time.Second).String(),
		Requests: s.stats.Requests.Load(),
		Failures: s.stats.Failures.Load(),
		Rejected: s.stats.Rejected.Load(),
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", ln.Addr().String()).Info("fixture server listening")
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("fixture server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
