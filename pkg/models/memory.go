package models

// MemoryEvent is a single observation from the user memory system
// (an external collaborator). Only the event type matters to the engine.
type MemoryEvent struct {
	EventType   string `json:"event_type"`
	Module      string `json:"module,omitempty"`
	Observation string `json:"observation,omitempty"`
}

// MemoryPattern is a recurring pattern detected by the memory system,
// e.g. "repeated struggles with Tradeoff Analysis under time pressure".
type MemoryPattern struct {
	PatternType string  `json:"pattern_type,omitempty"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// MemoryContext is the optional memory input to the decision engine.
// A nil *MemoryContext means no memory data is available; all signals
// that depend on it fall back to their neutral defaults.
type MemoryContext struct {
	WeaknessSummary string          `json:"weakness_summary,omitempty"`
	RecentEvents    []MemoryEvent   `json:"recent_events,omitempty"`
	Patterns        []MemoryPattern `json:"patterns,omitempty"`
}

// FeedbackEvent closes the learning loop: a module reports how a session
// ended so future routing can account for it.
type FeedbackEvent struct {
	UserID            string             `json:"user_id"`
	Module            string             `json:"module"`
	SessionDurationS  float64            `json:"session_duration_s,omitempty"`
	CompletionStatus  string             `json:"completion_status"` // completed | abandoned | partial
	SatisfactionScore float64            `json:"satisfaction_score,omitempty"` // 1–5 user rating
	Scores            map[string]float64 `json:"scores,omitempty"`
}
