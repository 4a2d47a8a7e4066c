package api

import (
	"database/sql"
	"testing"

	"github.com/studymate/orchestrator/pkg/breaker"
	"github.com/studymate/orchestrator/pkg/config"
	"github.com/studymate/orchestrator/pkg/engine"
	"github.com/studymate/orchestrator/pkg/evaluator"
	"github.com/studymate/orchestrator/pkg/llm"
	"github.com/studymate/orchestrator/pkg/metrics"
	"github.com/studymate/orchestrator/pkg/registry"
	"github.com/studymate/orchestrator/pkg/state"
)

// newTestServer builds a server with the default catalog and no LLM
// providers. db may be nil to exercise degraded mode.
func newTestServer(t *testing.T, db *sql.DB) *Server {
	t.Helper()

	cfg := &config.Config{
		Engine:  config.DefaultEngineConfig(),
		Modules: config.DefaultModuleRegistry(),
		CORS:    config.CORSConfig{AllowAll: true},
	}
	breakers := breaker.NewRegistry(
		cfg.Engine.CBFailureThreshold, cfg.Engine.CBRecoveryTimeout, cfg.Engine.CBHalfOpenMax)
	reg := registry.New(cfg.Modules, breakers)
	collector := metrics.NewCollector(100)
	llmClient := llm.NewClient(cfg.LLM)
	eng := engine.New(cfg.Engine, cfg.Modules)

	s := NewServer(cfg, eng, reg, breakers, collector, llmClient)
	if db != nil {
		s.SetDatabase(nil, state.NewManager(db), evaluator.NewService(db, llmClient, collector))
	}
	return s
}
