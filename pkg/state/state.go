// Package state persists and assembles per-user orchestration state: skill
// scores, onboarding context, and the append-only decision audit trail.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/studymate/orchestrator/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const maxRecentModules = 10
const maxPersistedCandidates = 5

// Manager provides all database access for user state and decisions.
type Manager struct {
	db *sql.DB
}

// NewManager wraps an open pool.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// GetUserState assembles the full snapshot for userID, creating a default
// row on first sight. Onboarding and history lookups degrade gracefully:
// their failures are logged and the snapshot keeps neutral defaults.
func (m *Manager) GetUserState(ctx context.Context, userID string) (models.UserState, error) {
	state := models.NewUserState(userID)

	// First sight of a user creates the all-default row.
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO user_state (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return state, fmt.Errorf("initializing user state: %w", err)
	}

	var nextModule sql.NullString
	var lastUpdate sql.NullTime
	err = m.db.QueryRowContext(ctx,
		`SELECT clarity_avg, tradeoff_avg, adaptability_avg, failure_awareness_avg,
		        dsa_predict_skill, next_module, last_update
		 FROM user_state WHERE user_id = $1`,
		userID).Scan(
		&state.Scores.ClarityAvg,
		&state.Scores.TradeoffAvg,
		&state.Scores.AdaptabilityAvg,
		&state.Scores.FailureAwarenessAvg,
		&state.Scores.DSAPredictSkill,
		&nextModule,
		&lastUpdate,
	)
	if err != nil {
		return state, fmt.Errorf("reading user state: %w", err)
	}
	state.Scores = state.Scores.Clamp()
	if nextModule.Valid {
		state.NextModule = nextModule.String
	}
	if lastUpdate.Valid {
		t := lastUpdate.Time
		state.LastUpdate = &t
	}

	if err := m.loadOnboarding(ctx, &state); err != nil {
		slog.Warn("Onboarding lookup failed, using defaults", "user_id", userID, "error", err)
	}
	if err := m.loadRecentModules(ctx, &state); err != nil {
		slog.Warn("Recent module lookup failed, using defaults", "user_id", userID, "error", err)
	}
	if err := m.loadVisitCounts(ctx, &state); err != nil {
		slog.Warn("Visit count lookup failed, using defaults", "user_id", userID, "error", err)
	}
	return state, nil
}

func (m *Manager) loadOnboarding(ctx context.Context, state *models.UserState) error {
	var targetRole, primaryFocus sql.NullString
	err := m.db.QueryRowContext(ctx,
		`SELECT target_role, primary_focus FROM user_onboarding WHERE user_id = $1`,
		state.UserID).Scan(&targetRole, &primaryFocus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // user has not onboarded yet
	}
	if err != nil {
		return err
	}
	state.TargetRole = targetRole.String
	state.PrimaryFocus = primaryFocus.String
	return nil
}

func (m *Manager) loadRecentModules(ctx context.Context, state *models.UserState) error {
	rows, err := m.db.QueryContext(ctx,
		`SELECT next_module FROM orchestrator_decisions
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		state.UserID, maxRecentModules)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var module string
		if err := rows.Scan(&module); err != nil {
			return err
		}
		state.RecentModules = append(state.RecentModules, module)
	}
	return rows.Err()
}

func (m *Manager) loadVisitCounts(ctx context.Context, state *models.UserState) error {
	rows, err := m.db.QueryContext(ctx,
		`SELECT next_module, COUNT(*) FROM orchestrator_decisions
		 WHERE user_id = $1 GROUP BY next_module`,
		state.UserID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var module string
		var count int
		if err := rows.Scan(&module, &count); err != nil {
			return err
		}
		state.ModuleVisitCounts[module] = count
	}
	return rows.Err()
}

// UpdateNextModule records the routed module on the user's state row.
func (m *Manager) UpdateNextModule(ctx context.Context, userID, module string) error {
	res, err := m.db.ExecContext(ctx,
		`UPDATE user_state SET next_module = $1, last_update = now() WHERE user_id = $2`,
		module, userID)
	if err != nil {
		return fmt.Errorf("updating next module: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating next module for %q: %w", userID, ErrNotFound)
	}
	return nil
}

// RecordDecision appends a decision to the audit trail and returns its row
// ID. The input snapshot captures the scores and top candidates so each
// decision stays explainable after the state moves on.
func (m *Manager) RecordDecision(ctx context.Context, userID string, d models.Decision) (int64, error) {
	snapshot := map[string]any{
		"scores":     d.Scores,
		"confidence": d.Confidence,
	}
	if d.WeaknessTrigger != "" {
		snapshot["weakness_trigger"] = d.WeaknessTrigger
	}
	if len(d.CandidateScores) > 0 {
		n := len(d.CandidateScores)
		if n > maxPersistedCandidates {
			n = maxPersistedCandidates
		}
		candidates := make([]map[string]any, 0, n)
		for _, cs := range d.CandidateScores[:n] {
			candidates = append(candidates, map[string]any{
				"module":      cs.Module,
				"total_score": math.Round(cs.TotalScore*10000) / 10000,
			})
		}
		snapshot["candidate_scores"] = candidates
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("encoding decision snapshot: %w", err)
	}

	var id int64
	err = m.db.QueryRowContext(ctx,
		`INSERT INTO orchestrator_decisions (user_id, next_module, depth, reason, input_snapshot)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		userID, d.NextModule, d.Depth.Int(), d.Reason, raw).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("recording decision: %w", err)
	}
	return id, nil
}

// GetDecisionHistory returns the most recent decisions for userID, newest
// first.
func (m *Manager) GetDecisionHistory(ctx context.Context, userID string, limit int) ([]models.DecisionLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, user_id, next_module, depth, reason, input_snapshot, created_at
		 FROM orchestrator_decisions
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("reading decision history: %w", err)
	}
	defer rows.Close()

	entries := []models.DecisionLogEntry{}
	for rows.Next() {
		var e models.DecisionLogEntry
		var reason sql.NullString
		var snapshot []byte
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.UserID, &e.NextModule, &e.Depth, &reason, &snapshot, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning decision row: %w", err)
		}
		e.Reason = reason.String
		e.CreatedAt = createdAt
		if len(snapshot) > 0 {
			if err := json.Unmarshal(snapshot, &e.InputSnapshot); err != nil {
				slog.Warn("Skipping malformed decision snapshot", "decision_id", e.ID, "error", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
