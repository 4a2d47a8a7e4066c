package api

import (
	"github.com/studymate/orchestrator/pkg/models"
	"github.com/studymate/orchestrator/pkg/registry"
)

// AuthError is the body of 401/403 responses.
type AuthError struct {
	Detail string `json:"detail"`
}

// RootResponse identifies the service on GET /.
type RootResponse struct {
	Service      string   `json:"service"`
	Version      string   `json:"version"`
	Architecture string   `json:"architecture"`
	Features     []string `json:"features"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status         string                            `json:"status"`
	Timestamp      string                            `json:"timestamp"`
	Database       string                            `json:"database"`
	Services       map[string]registry.ServiceHealth `json:"services"`
	UptimeSeconds  float64                           `json:"uptime_seconds"`
	MetricsSummary map[string]any                    `json:"metrics_summary"`
}

// NextModuleResponse is returned by GET /api/next.
type NextModuleResponse struct {
	NextModule      string             `json:"next_module"`
	Reason          string             `json:"reason"`
	Description     string             `json:"description"`
	MemoryContext   string             `json:"memory_context"`
	WeaknessTrigger *string            `json:"weakness_trigger"`
	Scores          map[string]float64 `json:"scores"`
	Confidence      float64            `json:"confidence"`
	Depth           string             `json:"depth"`
	DecisionID      *string            `json:"decision_id"`
}

// UserStateResponse is returned by GET /api/state/:user_id.
type UserStateResponse struct {
	UserID              string   `json:"user_id"`
	ClarityAvg          float64  `json:"clarity_avg"`
	TradeoffAvg         float64  `json:"tradeoff_avg"`
	AdaptabilityAvg     float64  `json:"adaptability_avg"`
	FailureAwarenessAvg float64  `json:"failure_awareness_avg"`
	DSAPredictSkill     float64  `json:"dsa_predict_skill"`
	NextModule          string   `json:"next_module,omitempty"`
	TargetRole          string   `json:"target_role,omitempty"`
	RecentModules       []string `json:"recent_modules"`
	Depth               string   `json:"depth"`
}

// DecisionHistoryResponse is returned by GET /api/orchestrator/decisions.
type DecisionHistoryResponse struct {
	UserID    string                    `json:"user_id"`
	Decisions []models.DecisionLogEntry `json:"decisions"`
}

// EvaluateResponse is returned by POST /api/evaluate.
type EvaluateResponse struct {
	Status string `json:"status"`
}

// FeedbackResponse is returned by POST /api/orchestrator/feedback.
type FeedbackResponse struct {
	Status string `json:"status"`
	Module string `json:"module"`
}

// ResetBreakerResponse is returned by the breaker reset endpoint.
type ResetBreakerResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	NewState string `json:"new_state"`
}
