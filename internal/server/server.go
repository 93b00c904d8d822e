// Package server exposes the aggregator over HTTP: keyword search for
// clients and an authenticated maintenance trigger for operators.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"intern_radar/internal/config"
	"intern_radar/internal/domain"
)

type SearchProvider interface {
	Search(ctx context.Context, keyword string) (*domain.SearchResult, error)
}

type Maintainer interface {
	RunMaintenanceCycle(ctx context.Context) (*domain.PoolStats, error)
}

type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	search     SearchProvider
	maintainer Maintainer
	config     config.ServerConfig
	logger     *slog.Logger
}

func New(search SearchProvider, maintainer Maintainer, cfg config.ServerConfig, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		search:     search,
		maintainer: maintainer,
		config:     cfg,
		logger:     logger.With("component", "server"),
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: engine,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/jobs", s.handleSearch)
	s.engine.POST("/pool/refresh", s.requireAPIKey(), s.handleRefresh)
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.config.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSearch(c *gin.Context) {
	keyword := c.Query("query")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
		return
	}

	result, err := s.search.Search(c.Request.Context(), keyword)
	if err != nil {
		s.logger.Error("search failed", "keyword", keyword, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRefresh(c *gin.Context) {
	stats, err := s.maintainer.RunMaintenanceCycle(c.Request.Context())
	if err != nil {
		s.logger.Error("manual maintenance cycle failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "maintenance cycle failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"purged":   stats.Purged,
		"keywords": stats.Keywords,
		"refilled": stats.Refilled,
		"inserted": stats.Inserted,
		"enriched": stats.Enriched,
		"errors":   stats.Errors,
		"duration": stats.Duration.String(),
	})
}

// requireAPIKey guards operator endpoints. With no key configured the
// endpoints stay open, which suits local development.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.config.APIKey != "" && c.GetHeader("X-API-KEY") != s.config.APIKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}
