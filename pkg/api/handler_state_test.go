package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStateHandler(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newTestServer(t, db)

	mock.ExpectExec("INSERT INTO user_state").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT clarity_avg").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"clarity_avg", "tradeoff_avg", "adaptability_avg",
			"failure_awareness_avg", "dsa_predict_skill", "next_module", "last_update",
		}).AddRow(0.9, 0.3, 0.8, 0.7, 0.6, "interactive_course", nil))
	mock.ExpectQuery("SELECT target_role").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"target_role", "primary_focus"}).
			AddRow("Backend Engineer", "system design"))
	mock.ExpectQuery("SELECT next_module FROM orchestrator_decisions").
		WithArgs("u1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"next_module"}).
			AddRow("interactive_course").AddRow("dsa_practice").AddRow("production_interview").
			AddRow("interactive_course").AddRow("dsa_practice").AddRow("project_studio"))
	mock.ExpectQuery("GROUP BY next_module").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"next_module", "count"}).
			AddRow("interactive_course", 2).AddRow("dsa_practice", 2))

	e := echo.New()
	e.GET("/api/state/:user_id", s.userStateHandler)
	req := httptest.NewRequest(http.MethodGet, "/api/state/u1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp UserStateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, 0.3, resp.TradeoffAvg)
	assert.Equal(t, "interactive_course", resp.NextModule)
	assert.Equal(t, "Backend Engineer", resp.TargetRole)
	// Only the five most recent modules are exposed.
	assert.Len(t, resp.RecentModules, 5)
	assert.Equal(t, "interactive_course", resp.RecentModules[0])
	assert.Equal(t, "remediation", resp.Depth)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStateHandlerWithoutDatabase(t *testing.T) {
	s := newTestServer(t, nil)

	e := echo.New()
	e.GET("/api/state/:user_id", s.userStateHandler)
	req := httptest.NewRequest(http.MethodGet, "/api/state/u1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDecisionsHandler(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newTestServer(t, db)

	snapshot := []byte(`{"confidence": 0.8, "scores": {"clarity_avg": 1.0}}`)
	mock.ExpectQuery("FROM orchestrator_decisions").
		WithArgs("u1", 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "next_module", "depth", "reason", "input_snapshot", "created_at",
		}).AddRow(int64(2), "u1", "dsa_practice", 2, "reason", snapshot, time.Now()))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/orchestrator/decisions?user_id=u1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err = s.decisionsHandler(c)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DecisionHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.UserID)
	require.Len(t, resp.Decisions, 1)
	assert.Equal(t, "dsa_practice", resp.Decisions[0].NextModule)
	assert.Equal(t, 2, resp.Decisions[0].Depth)
	assert.Equal(t, 0.8, resp.Decisions[0].InputSnapshot["confidence"])
}

func TestDecisionsHandlerMissingUserID(t *testing.T) {
	s := newTestServer(t, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/orchestrator/decisions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.decisionsHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
