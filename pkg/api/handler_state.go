package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"
)

// userStateHandler handles GET /api/state/:user_id.
func (s *Server) userStateHandler(c *echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if forbidden(c, userID) {
		return c.JSON(http.StatusForbidden, &AuthError{Detail: "Access denied"})
	}
	if s.state == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database not available")
	}

	st, err := s.state.GetUserState(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}

	recent := st.RecentModules
	if len(recent) > 5 {
		recent = recent[:5]
	}
	return c.JSON(http.StatusOK, &UserStateResponse{
		UserID:              userID,
		ClarityAvg:          st.Scores.ClarityAvg,
		TradeoffAvg:         st.Scores.TradeoffAvg,
		AdaptabilityAvg:     st.Scores.AdaptabilityAvg,
		FailureAwarenessAvg: st.Scores.FailureAwarenessAvg,
		DSAPredictSkill:     st.Scores.DSAPredictSkill,
		NextModule:          st.NextModule,
		TargetRole:          st.TargetRole,
		RecentModules:       recent,
		Depth:               string(s.engine.Depth(st)),
	})
}

// decisionsHandler handles GET /api/orchestrator/decisions. The audit trail
// read, newest first.
func (s *Server) decisionsHandler(c *echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if forbidden(c, userID) {
		return c.JSON(http.StatusForbidden, &AuthError{Detail: "Access denied"})
	}
	if s.state == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database not available")
	}

	limit := 10
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	decisions, err := s.state.GetDecisionHistory(c.Request().Context(), userID, limit)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &DecisionHistoryResponse{
		UserID:    userID,
		Decisions: decisions,
	})
}
