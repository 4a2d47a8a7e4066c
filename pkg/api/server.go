// Package api exposes the orchestrator over HTTP: the decision endpoint,
// evaluation ingestion, state and audit-trail reads, and the observability
// surface (metrics, circuit breakers, service health).
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/studymate/orchestrator/pkg/breaker"
	"github.com/studymate/orchestrator/pkg/config"
	"github.com/studymate/orchestrator/pkg/database"
	"github.com/studymate/orchestrator/pkg/engine"
	"github.com/studymate/orchestrator/pkg/evaluator"
	"github.com/studymate/orchestrator/pkg/llm"
	"github.com/studymate/orchestrator/pkg/metrics"
	"github.com/studymate/orchestrator/pkg/registry"
	"github.com/studymate/orchestrator/pkg/state"
)

// Server is the HTTP server over the orchestrator's components.
type Server struct {
	cfg       *config.Config
	engine    *engine.Engine
	registry  *registry.ServiceRegistry
	breakers  *breaker.Registry
	collector *metrics.Collector
	llm       *llm.Client

	// Nil when the database is unavailable. Handlers degrade: /api/next
	// falls back to the default module, state endpoints return 503.
	db        *database.Client
	state     *state.Manager
	evaluator *evaluator.Service

	monitor *registry.Monitor

	echo *echo.Echo
	srv  *http.Server
}

// NewServer wires the HTTP layer over the given components.
func NewServer(
	cfg *config.Config,
	eng *engine.Engine,
	reg *registry.ServiceRegistry,
	breakers *breaker.Registry,
	collector *metrics.Collector,
	llmClient *llm.Client,
) *Server {
	s := &Server{
		cfg:       cfg,
		engine:    eng,
		registry:  reg,
		breakers:  breakers,
		collector: collector,
		llm:       llmClient,
	}

	e := echo.New()
	e.Use(requestID(), requestLogger(), securityHeaders(), corsHeaders(cfg.CORS))
	s.echo = e
	s.registerRoutes()
	return s
}

// SetDatabase wires the database-backed components. Not calling it leaves
// the server in degraded mode.
func (s *Server) SetDatabase(db *database.Client, stateMgr *state.Manager, eval *evaluator.Service) {
	s.db = db
	s.state = stateMgr
	s.evaluator = eval
}

// SetMonitor attaches the health monitor used for live probes on /health.
func (s *Server) SetMonitor(m *registry.Monitor) {
	s.monitor = m
}

func (s *Server) registerRoutes() {
	e := s.echo

	e.GET("/", s.rootHandler)
	e.GET("/health", s.healthHandler)

	g := e.Group("/api", jwtAuth(s.cfg.Auth))
	g.POST("/evaluate", s.evaluateHandler)
	g.GET("/next", s.nextModuleHandler)
	g.GET("/state/:user_id", s.userStateHandler)
	g.GET("/orchestrator/decisions", s.decisionsHandler)
	g.GET("/orchestrator/metrics", s.metricsHandler)
	g.GET("/orchestrator/circuit-breakers", s.circuitBreakersHandler)
	g.POST("/orchestrator/circuit-breakers/:service/reset", s.resetBreakerHandler)
	g.GET("/orchestrator/services", s.servicesHandler)
	g.POST("/orchestrator/feedback", s.feedbackHandler)
}

// Start blocks serving HTTP on addr until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
