package api

import (
	"net/http"
	"strconv"
	"time"

	"log/slog"

	echo "github.com/labstack/echo/v5"

	"github.com/studymate/orchestrator/pkg/config"
	"github.com/studymate/orchestrator/pkg/models"
)

// nextModuleHandler handles GET /api/next.
//
// Pipeline: assemble user state, build the availability map, run the
// decision engine, decorate the reason, persist the decision, emit metrics.
// The handler never fails the user; every error degrades to the fallback
// module.
func (s *Server) nextModuleHandler(c *echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if forbidden(c, userID) {
		return c.JSON(http.StatusForbidden, &AuthError{Detail: "Access denied"})
	}

	if s.state == nil {
		return c.JSON(http.StatusOK,
			s.fallbackNext("Database unavailable — defaulting to Project Studio.", 0.5))
	}

	start := time.Now()
	ctx := c.Request().Context()

	userState, err := s.state.GetUserState(ctx, userID)
	if err != nil {
		slog.Error("Decision pipeline failed", "user_id", userID, "error", err)
		s.collector.Counter("errors_total").Inc("decision_pipeline")
		return c.JSON(http.StatusOK,
			s.fallbackNext("Something went wrong — defaulting to Project Studio while we recover.", 0.3))
	}

	decision := s.engine.Decide(userState, nil, s.registry.HealthMap())
	decision.Reason = s.decorateReason(ctx, decision, userState)

	// Audit writes are best-effort: a failed insert never costs the user
	// their decision.
	var decisionID *string
	if id, err := s.state.RecordDecision(ctx, userID, decision); err != nil {
		slog.Error("Failed to record decision", "user_id", userID, "error", err)
		s.collector.Counter("errors_total").Inc("decision_audit")
	} else {
		v := strconv.FormatInt(id, 10)
		decisionID = &v
	}
	if err := s.state.UpdateNextModule(ctx, userID, decision.NextModule); err != nil {
		slog.Error("Failed to update next module", "user_id", userID, "error", err)
		s.collector.Counter("errors_total").Inc("decision_audit")
	}

	elapsed := time.Since(start)
	s.collector.RecordDecision(userID, decision.NextModule, string(decision.Depth), decision.Confidence, elapsed)
	slog.Info("Decision made",
		"user_id", userID,
		"next_module", decision.NextModule,
		"depth", string(decision.Depth),
		"confidence", decision.Confidence,
		"elapsed", elapsed.Round(time.Millisecond))

	var trigger *string
	if decision.WeaknessTrigger != "" {
		trigger = &decision.WeaknessTrigger
	}
	return c.JSON(http.StatusOK, &NextModuleResponse{
		NextModule:      decision.NextModule,
		Reason:          decision.Reason,
		Description:     decision.Description,
		MemoryContext:   "",
		WeaknessTrigger: trigger,
		Scores:          decision.Scores,
		Confidence:      decision.Confidence,
		Depth:           string(decision.Depth),
		DecisionID:      decisionID,
	})
}

// fallbackNext is the safe default returned when the pipeline cannot run.
func (s *Server) fallbackNext(reason string, confidence float64) *NextModuleResponse {
	def, _ := s.cfg.Modules.Get(config.FallbackModule)
	return &NextModuleResponse{
		NextModule:  config.FallbackModule,
		Reason:      reason,
		Description: def.Description,
		Confidence:  confidence,
		Depth:       string(models.DepthNormal),
	}
}
