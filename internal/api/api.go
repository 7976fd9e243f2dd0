// Package api exposes the resolution and signal pipeline over HTTP for the
// dashboard and CLI collaborators. It owns request parsing and status-code
// mapping only; all domain logic stays in the engine.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fnobot-go/internal/engine"
)

const requestIDHeader = "X-Request-ID"

// ReloadFunc refreshes the catalog from its source (venue download or local
// file); the server never talks to the venue directly.
type ReloadFunc func(ctx context.Context) error

// Server binds HTTP routes to the engine.
type Server struct {
	log    zerolog.Logger
	engine *engine.Engine
	quotes engine.QuoteFetcher
	reload ReloadFunc
}

// NewServer builds the HTTP facade over an engine. quotes may be nil, in
// which case nearest-strike queries must carry an explicit reference price.
func NewServer(log zerolog.Logger, eng *engine.Engine, quotes engine.QuoteFetcher, reload ReloadFunc) *Server {
	return &Server{log: log, engine: eng, quotes: quotes, reload: reload}
}

// Router assembles the gin handler tree.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware())

	router.GET("/health", s.health)
	router.GET("/contracts/resolve", s.resolveContract)
	router.GET("/signal", s.deriveSignal)
	router.GET("/series", s.annotatedSeries)
	router.POST("/catalog/reload", s.reloadCatalog)
	return router
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(requestIDHeader, requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) reloadCatalog(c *gin.Context) {
	if s.reload == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "catalog reload not wired"})
		return
	}
	if err := s.reload(c.Request.Context()); err != nil {
		s.fail(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
}

// fail logs the error with the request id and renders a uniform error body.
func (s *Server) fail(c *gin.Context, status int, err error) {
	requestID := c.GetString("request_id")
	s.log.Error().
		Str("request_id", requestID).
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Err(err).
		Msg("request failed")
	c.JSON(status, gin.H{"error": err.Error(), "request_id": requestID})
}
