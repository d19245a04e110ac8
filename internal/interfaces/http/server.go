// Package http provides the HTTP server adapter for the application layer.
// It is a thin layer that translates HTTP requests into engine and service
// calls; no workflow rules live here.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/application/leave"
	"github.com/Kavesh2000/Onitticketingsystem/internal/application/workflow"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	engine     workflow.Engine
	leave      *leave.Service
	recomputer *leave.Recomputer
	reporter   *leave.ReportExporter
	reportDir  string
	logger     *zap.Logger
}

// NewServer creates a new HTTP server wired to the workflow engine and the
// leave services
func NewServer(
	config ServerConfig,
	engine workflow.Engine,
	leaveService *leave.Service,
	recomputer *leave.Recomputer,
	reporter *leave.ReportExporter,
	reportDir string,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:     config,
		router:     gin.New(),
		engine:     engine,
		leave:      leaveService,
		recomputer: recomputer,
		reporter:   reporter,
		reportDir:  reportDir,
		logger:     logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("latency", time.Since(start).String()),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.engine, s.leave, s.recomputer, s.reporter, s.reportDir, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		workflows := api.Group("/workflows")
		{
			workflows.GET("/pending", handlers.ListPendingForRole)
			workflows.GET("/:id", handlers.GetProgress)
			workflows.GET("/:id/next-approver", handlers.GetNextApprover)
			workflows.POST("/:id/approve", handlers.ApproveStep)
			workflows.POST("/:id/reject", handlers.RejectStep)
			workflows.POST("/:id/resubmit", handlers.ResubmitWorkflow)
		}

		api.GET("/requests/:requestId/audit", handlers.GetAuditTrail)

		leaveGroup := api.Group("/leave")
		{
			leaveGroup.POST("/requests", handlers.SubmitLeave)
			leaveGroup.GET("/requests/:id", handlers.GetLeave)
			leaveGroup.POST("/balances/recompute", handlers.RecomputeBalances)
			leaveGroup.POST("/balances/report", handlers.ExportBalanceReport)
		}
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// server fails
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
