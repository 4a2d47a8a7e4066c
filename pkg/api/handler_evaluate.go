package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/studymate/orchestrator/pkg/evaluator"
)

// evaluateHandler handles POST /api/evaluate. Fire-and-forget from the
// caller's perspective: internal DB or LLM failures never surface, the
// response is ok as long as the body parses.
func (s *Server) evaluateHandler(c *echo.Context) error {
	var req evaluator.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" || req.Module == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and module are required")
	}
	if forbidden(c, req.UserID) {
		return c.JSON(http.StatusForbidden, &AuthError{Detail: "Access denied"})
	}

	if s.evaluator != nil {
		s.evaluator.Evaluate(c.Request().Context(), req)
	} else {
		s.collector.Counter("errors_total").Inc("evaluator_unavailable")
	}
	return c.JSON(http.StatusOK, &EvaluateResponse{Status: "ok"})
}
