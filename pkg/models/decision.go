package models

import "time"

// DecisionDepth classifies the urgency of a routing decision.
type DecisionDepth string

const (
	DepthNormal      DecisionDepth = "normal"      // all scores healthy
	DepthRemediation DecisionDepth = "remediation" // a skill is below the weakness threshold
	DepthCritical    DecisionDepth = "critical"    // a skill is below the critical threshold
	DepthOnboarding  DecisionDepth = "onboarding"  // fresh user, no history
)

// Int returns the audit-log integer encoding of the depth.
func (d DecisionDepth) Int() int {
	switch d {
	case DepthOnboarding:
		return 0
	case DepthRemediation:
		return 2
	case DepthCritical:
		return 3
	default:
		return 1
	}
}

// ModuleScore is the full scoring breakdown for one candidate module.
type ModuleScore struct {
	Module                string  `json:"module"`
	TotalScore            float64 `json:"total_score"`
	WeaknessSeverityScore float64 `json:"weakness_severity_score"`
	RateOfChangeScore     float64 `json:"rate_of_change_score"`
	RecencyScore          float64 `json:"recency_score"`
	GoalAlignmentScore    float64 `json:"goal_alignment_score"`
	PatternScore          float64 `json:"pattern_score"`
	CooldownPenalty       float64 `json:"cooldown_penalty"`
	DiversityBonus        float64 `json:"diversity_bonus"`
}

// Decision is the immutable result of one routing decision, with full
// explainability. Persisted to the append-only audit trail.
type Decision struct {
	NextModule      string             `json:"next_module"`
	Reason          string             `json:"reason"`      // LLM-decorated, or RuleReason when decoration fails
	RuleReason      string             `json:"rule_reason"` // always deterministic
	Description     string             `json:"description"`
	Depth           DecisionDepth      `json:"depth"`
	WeaknessTrigger string             `json:"weakness_trigger,omitempty"` // dominating dimension, if any
	Scores          map[string]float64 `json:"scores,omitempty"`
	Confidence      float64            `json:"confidence"`
	CandidateScores []ModuleScore      `json:"candidate_scores,omitempty"` // top 5, sorted by total descending
	DecisionID      string             `json:"decision_id,omitempty"`
}

// DecisionLogEntry is one row from the decision audit trail.
type DecisionLogEntry struct {
	ID            int64          `json:"id"`
	UserID        string         `json:"user_id"`
	NextModule    string         `json:"next_module"`
	Depth         int            `json:"depth"`
	Reason        string         `json:"reason"`
	CreatedAt     time.Time      `json:"created_at"`
	InputSnapshot map[string]any `json:"input_snapshot,omitempty"`
}
