package ui

import (
	"context"
	"log"
	"net/http"
	"time"

	"dixonq/internal/streams"
	"dixonq/ports"

	"github.com/gin-gonic/gin"
)

// Server exposes the stream registry over a JSON API
type Server struct {
	router   *gin.Engine
	registry *streams.Registry
	ledger   ports.EvaluationRepository // nil when no database is configured
	http     *http.Server
}

// NewServer creates the API server. ledger may be nil, in which case the
// evaluation history endpoint reports that persistence is disabled.
func NewServer(registry *streams.Registry, ledger ports.EvaluationRepository) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		router:   router,
		registry: registry,
		ledger:   ledger,
	}
	s.setupRoutes()
	return s
}

// Handler returns the underlying router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/critical-values", s.handleCriticalValue)

	group := s.router.Group("/streams")
	group.GET("", s.handleListStreams)
	group.POST("/:id", s.handleOpenStream)
	group.GET("/:id", s.handleGetStream)
	group.DELETE("/:id", s.handleCloseStream)
	group.POST("/:id/samples", s.handleIngest)
	group.POST("/:id/reset", s.handleResetStream)
	group.GET("/:id/evaluations", s.handleListEvaluations)
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("[Server] listening on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// requestLogger logs one line per request in the same format as the rest of the service
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[HTTP] %s %s -> %d (%.2fms)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			float64(time.Since(start).Nanoseconds())/1e6)
	}
}
