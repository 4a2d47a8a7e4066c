package evaluator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymate/orchestrator/pkg/config"
	"github.com/studymate/orchestrator/pkg/llm"
	"github.com/studymate/orchestrator/pkg/metrics"
)

func newScoringServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEvaluatePipeline(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	srv := newScoringServer(t,
		`{"clarity": 0.8, "tradeoffs": 0.6, "adaptability": 0.7, "failure_awareness": 0.5, "dsa_predict": null}`)
	client := llm.NewClient(config.LLMConfig{PrimaryURL: srv.URL, PrimaryKey: "k", PrimaryModel: "m"})
	svc := NewService(db, client, metrics.NewCollector(100))

	mock.ExpectExec("INSERT INTO interactions").
		WithArgs("u1", "interactive_course", "core", "Q?", "A.").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO scores").
		WithArgs("u1", "interactive_course",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO user_state").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE user_state us SET").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc.Evaluate(context.Background(), Request{
		UserID: "u1", Module: "interactive_course", Question: "Q?", Answer: "A.",
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluatePipelineLLMFailureStillPersists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// No providers configured: scoring fails, all-null scores are stored.
	client := llm.NewClient(config.LLMConfig{})
	collector := metrics.NewCollector(100)
	svc := NewService(db, client, collector)

	mock.ExpectExec("INSERT INTO interactions").
		WithArgs("u1", "dsa_practice", "core", "Q?", "A.").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO scores").
		WithArgs("u1", "dsa_practice",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO user_state").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE user_state us SET").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc.Evaluate(context.Background(), Request{
		UserID: "u1", Module: "dsa_practice", Question: "Q?", Answer: "A.",
	})
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(1), collector.Counter("llm_failures").Total())
}

func TestAggregatorSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	agg := NewAggregator(db)

	mock.ExpectExec("INSERT INTO user_state").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE user_state us SET").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, agg.UpdateUserState(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
