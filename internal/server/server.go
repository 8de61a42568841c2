package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridbot/internal/grid"
)

// runTokenHeader carries the shared secret protecting the trigger endpoint.
const runTokenHeader = "X-Run-Token"

// Server exposes the HTTP trigger surface: /run starts a cycle, /healthz
// answers deployment health checks, /metrics serves Prometheus.
type Server struct {
	logger       *slog.Logger
	router       *gin.Engine
	orchestrator *grid.Orchestrator
	runToken     string
	port         int
}

// NewServer creates the API server.
func NewServer(logger *slog.Logger, orchestrator *grid.Orchestrator, runToken string, port int) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		logger:       logger,
		router:       router,
		orchestrator: orchestrator,
		runToken:     runToken,
		port:         port,
	}

	router.GET("/healthz", s.handleHealthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/run", s.handleRun)
	return s
}

// Run blocks serving HTTP until the listener fails.
func (s *Server) Run() error {
	s.logger.Info("http server listening", "port", s.port)
	return s.router.Run(fmt.Sprintf(":%d", s.port))
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// handleRun authenticates the trigger and executes one cycle. A cycle
// already in flight answers 409 without touching engine state.
func (s *Server) handleRun(c *gin.Context) {
	if s.runToken != "" && c.GetHeader(runTokenHeader) != s.runToken {
		s.logger.Warn("unauthorized run attempt blocked", "remote", c.ClientIP())
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
		return
	}

	report := s.orchestrator.Run(c.Request.Context())
	switch report.Outcome {
	case grid.OutcomeBusy:
		c.JSON(http.StatusConflict, report)
	default:
		c.JSON(http.StatusOK, report)
	}
}
