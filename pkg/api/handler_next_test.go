package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextModuleMissingUserID(t *testing.T) {
	s := newTestServer(t, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/next", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.nextModuleHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestNextModuleForbiddenForOtherUser(t *testing.T) {
	s := newTestServer(t, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/next?user_id=u1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ctxKeyUserID, "someone-else")

	require.NoError(t, s.nextModuleHandler(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body AuthError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Access denied", body.Detail)
}

func TestNextModuleFallbackWithoutDatabase(t *testing.T) {
	s := newTestServer(t, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/next?user_id=u1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, s.nextModuleHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp NextModuleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "project_studio", resp.NextModule)
	assert.Equal(t, 0.5, resp.Confidence)
	assert.Equal(t, "normal", resp.Depth)
	assert.Contains(t, resp.Reason, "Database unavailable")
	assert.Nil(t, resp.DecisionID)
}

func TestNextModuleFullPipeline(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newTestServer(t, db)

	// get_user_state: lazy init, scores, onboarding, history, visit counts.
	mock.ExpectExec("INSERT INTO user_state").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT clarity_avg").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"clarity_avg", "tradeoff_avg", "adaptability_avg",
			"failure_awareness_avg", "dsa_predict_skill", "next_module", "last_update",
		}).AddRow(1.0, 1.0, 1.0, 1.0, 1.0, nil, nil))
	mock.ExpectQuery("SELECT target_role").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"target_role", "primary_focus"}))
	mock.ExpectQuery("SELECT next_module FROM orchestrator_decisions").
		WithArgs("u1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"next_module"}))
	mock.ExpectQuery("GROUP BY next_module").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"next_module", "count"}))

	// Audit trail + state pointer update.
	mock.ExpectQuery("INSERT INTO orchestrator_decisions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("UPDATE user_state SET next_module").
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/next?user_id=u1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, s.nextModuleHandler(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp NextModuleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, s.cfg.Modules.Has(resp.NextModule), "module %q not in catalog", resp.NextModule)
	assert.Equal(t, "onboarding", resp.Depth)
	assert.GreaterOrEqual(t, resp.Confidence, 0.3)
	assert.NotEmpty(t, resp.Reason)
	assert.Nil(t, resp.WeaknessTrigger)
	assert.Equal(t, 1.0, resp.Scores["clarity_avg"])
	require.NotNil(t, resp.DecisionID)
	assert.Equal(t, "7", *resp.DecisionID)

	assert.NoError(t, mock.ExpectationsWereMet())
	// With no LLM provider configured the rule reason is served and the
	// failure is counted.
	assert.Equal(t, int64(1), s.collector.Counter("llm_failures").Total())
	assert.Equal(t, int64(1), s.collector.Counter("decisions_total").Total())
}

func TestNextModuleDegradesOnStateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newTestServer(t, db)

	mock.ExpectExec("INSERT INTO user_state").
		WithArgs("u1").
		WillReturnError(assert.AnError)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/next?user_id=u1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, s.nextModuleHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp NextModuleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "project_studio", resp.NextModule)
	assert.Equal(t, 0.3, resp.Confidence)
	assert.Contains(t, resp.Reason, "Something went wrong")
	assert.Equal(t, int64(1), s.collector.Counter("errors_total").Total())
}
