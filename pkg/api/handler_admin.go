package api

import (
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/studymate/orchestrator/pkg/models"
)

// metricsHandler handles GET /api/orchestrator/metrics.
func (s *Server) metricsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.collector.Summary())
}

// circuitBreakersHandler handles GET /api/orchestrator/circuit-breakers.
func (s *Server) circuitBreakersHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.breakers.AllStatus())
}

// resetBreakerHandler handles POST /api/orchestrator/circuit-breakers/:service/reset.
// Admin escape hatch for a breaker stuck open after a downstream recovers.
func (s *Server) resetBreakerHandler(c *echo.Context) error {
	service := c.Param("service")
	if service == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "service is required")
	}
	if err := s.breakers.Reset(service); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	slog.Info("Circuit breaker manually reset", "service", service)
	return c.JSON(http.StatusOK, &ResetBreakerResponse{
		Status:   "ok",
		Service:  service,
		NewState: string(s.breakers.Get(service).State()),
	})
}

// servicesHandler handles GET /api/orchestrator/services.
func (s *Server) servicesHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.AllStatus())
}

// feedbackHandler handles POST /api/orchestrator/feedback. Closes the
// learning loop: modules report how a session ended.
func (s *Server) feedbackHandler(c *echo.Context) error {
	var ev models.FeedbackEvent
	if err := c.Bind(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if ev.UserID == "" || ev.Module == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and module are required")
	}
	if forbidden(c, ev.UserID) {
		return c.JSON(http.StatusForbidden, &AuthError{Detail: "Access denied"})
	}

	s.collector.Counter("feedback_events").Inc(ev.Module)
	slog.Info("Feedback recorded",
		"user_id", ev.UserID,
		"module", ev.Module,
		"completion_status", ev.CompletionStatus,
		"satisfaction", ev.SatisfactionScore)

	return c.JSON(http.StatusOK, &FeedbackResponse{Status: "ok", Module: ev.Module})
}
