// Package models defines the orchestrator's core data types: skill scores,
// user state snapshots, routing decisions, and their wire representations.
package models

import "time"

// SkillDimensionNames lists the five score dimensions in canonical order.
var SkillDimensionNames = []string{
	"clarity_avg",
	"tradeoff_avg",
	"adaptability_avg",
	"failure_awareness_avg",
	"dsa_predict_skill",
}

// SkillScores holds a user's current score across all five dimensions.
// Every value is in [0,1]. A brand-new user defaults to 1.0 everywhere:
// no evidence of weakness yet.
type SkillScores struct {
	ClarityAvg          float64 `json:"clarity_avg"`
	TradeoffAvg         float64 `json:"tradeoff_avg"`
	AdaptabilityAvg     float64 `json:"adaptability_avg"`
	FailureAwarenessAvg float64 `json:"failure_awareness_avg"`
	DSAPredictSkill     float64 `json:"dsa_predict_skill"`
}

// DefaultSkillScores returns the all-healthy defaults for a new user.
func DefaultSkillScores() SkillScores {
	return SkillScores{
		ClarityAvg:          1.0,
		TradeoffAvg:         1.0,
		AdaptabilityAvg:     1.0,
		FailureAwarenessAvg: 1.0,
		DSAPredictSkill:     1.0,
	}
}

// ToMap returns the scores keyed by dimension name.
func (s SkillScores) ToMap() map[string]float64 {
	return map[string]float64{
		"clarity_avg":           s.ClarityAvg,
		"tradeoff_avg":          s.TradeoffAvg,
		"adaptability_avg":      s.AdaptabilityAvg,
		"failure_awareness_avg": s.FailureAwarenessAvg,
		"dsa_predict_skill":     s.DSAPredictSkill,
	}
}

// Get returns the value for a dimension name, or 1.0 if unknown.
func (s SkillScores) Get(dimension string) float64 {
	if v, ok := s.ToMap()[dimension]; ok {
		return v
	}
	return 1.0
}

// Clamp returns a copy with every dimension clamped to [0,1].
func (s SkillScores) Clamp() SkillScores {
	return SkillScores{
		ClarityAvg:          clamp01(s.ClarityAvg),
		TradeoffAvg:         clamp01(s.TradeoffAvg),
		AdaptabilityAvg:     clamp01(s.AdaptabilityAvg),
		FailureAwarenessAvg: clamp01(s.FailureAwarenessAvg),
		DSAPredictSkill:     clamp01(s.DSAPredictSkill),
	}
}

// WeakestDimension returns the lowest-scoring dimension below threshold,
// or "" when every dimension is at or above it. Ties resolve in canonical
// dimension order.
func (s SkillScores) WeakestDimension(threshold float64) string {
	scores := s.ToMap()
	weakest := ""
	lowest := threshold
	for _, dim := range SkillDimensionNames {
		if v := scores[dim]; v < lowest {
			weakest = dim
			lowest = v
		}
	}
	return weakest
}

// AllHealthy reports whether every dimension is at or above threshold.
func (s SkillScores) AllHealthy(threshold float64) bool {
	for _, v := range s.ToMap() {
		if v < threshold {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// UserState is the full per-user snapshot assembled by the state manager.
type UserState struct {
	UserID     string      `json:"user_id"`
	Scores     SkillScores `json:"scores"`
	NextModule string      `json:"next_module,omitempty"`
	LastUpdate *time.Time  `json:"last_update,omitempty"`

	// Extended context from onboarding and decision history.
	TargetRole        string         `json:"target_role,omitempty"`
	PrimaryFocus      string         `json:"primary_focus,omitempty"`
	RecentModules     []string       `json:"recent_modules"`      // most recent first, ≤ 10
	ModuleVisitCounts map[string]int `json:"module_visit_counts"` // module → total decisions
}

// NewUserState returns a default state for a user with no history.
func NewUserState(userID string) UserState {
	return UserState{
		UserID:            userID,
		Scores:            DefaultSkillScores(),
		RecentModules:     []string{},
		ModuleVisitCounts: map[string]int{},
	}
}
