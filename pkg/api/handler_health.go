package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/studymate/orchestrator/pkg/registry"
	"github.com/studymate/orchestrator/pkg/version"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"

	// Per-service probe budget for the aggregate health endpoint. Tighter
	// than the background monitor's so the endpoint stays responsive.
	healthProbeBudget = 2 * time.Second
)

// healthHandler handles GET /health. Public and unauthenticated.
//
// Downstream services are probed live in parallel when a monitor is
// attached; otherwise the last background snapshots are reported. A
// database outage degrades the status but the endpoint still answers 200,
// since the process itself is serving.
func (s *Server) healthHandler(c *echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthProbeBudget)
	defer cancel()

	s.collector.Counter("health_checks").Inc("")

	if s.monitor != nil {
		s.monitor.CheckAll(ctx)
	}

	status := healthStatusHealthy
	dbStatus := "connected"
	if err := s.db.Health(ctx, healthProbeBudget); err != nil {
		status = healthStatusDegraded
		dbStatus = "disconnected"
	}

	services := make(map[string]registry.ServiceHealth)
	for _, svc := range s.registry.AllStatus() {
		services[svc.Name] = svc
	}

	return c.JSON(http.StatusOK, &HealthResponse{
		Status:         status,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Database:       dbStatus,
		Services:       services,
		UptimeSeconds:  s.collector.UptimeSeconds(),
		MetricsSummary: s.collector.HealthSummary(),
	})
}

// rootHandler handles GET /. Service identity for humans and smoke tests.
func (s *Server) rootHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &RootResponse{
		Service:      "StudyMate Orchestrator",
		Version:      version.Version,
		Architecture: "weighted-multi-signal",
		Features: []string{
			"weighted-decision-engine",
			"circuit-breakers",
			"service-health-monitoring",
			"decision-audit-trail",
			"metrics-dashboard",
			"llm-reasoning",
			"goal-aware-routing",
			"diversity-filter",
		},
	})
}
