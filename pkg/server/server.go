// Package server exposes the knowledge store over HTTP with gin.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mnemos-ai/mnemos"
	"github.com/mnemos-ai/mnemos/pkg/config"
	"github.com/mnemos-ai/mnemos/pkg/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	client mnemos.Mnemos
	server *http.Server
	logger *slog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, client mnemos.Mnemos, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// Router returns the underlying gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.client)
	knowledgeHandler := handlers.NewKnowledgeHandler(s.client)
	queryHandler := handlers.NewQueryHandler(s.client)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		nodes := v1.Group("/nodes")
		{
			nodes.POST("", knowledgeHandler.AddNode)
			nodes.GET("/:id", knowledgeHandler.GetNode)
			nodes.PUT("/:id", knowledgeHandler.UpdateContent)
			nodes.DELETE("/:id", knowledgeHandler.DeleteNode)
			nodes.POST("/:id/approve", knowledgeHandler.Approve)
			nodes.POST("/:id/clarify", knowledgeHandler.Clarify)
			nodes.GET("/:id/neighbors", knowledgeHandler.Neighbors)
		}

		v1.POST("/edges", knowledgeHandler.Link)
		v1.DELETE("/edges", knowledgeHandler.Unlink)

		v1.POST("/query", queryHandler.Query)
		v1.POST("/subgraph", queryHandler.Subgraph)
		v1.GET("/conflicts", queryHandler.Conflicts)
		v1.GET("/orphans", queryHandler.Orphans)
		v1.GET("/stats", queryHandler.Stats)
	}
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
