package evaluator

import (
	"context"
	"database/sql"
	"fmt"
)

// Aggregator folds raw score rows into the user_state skill averages.
type Aggregator struct {
	db *sql.DB
}

// NewAggregator wraps an open pool.
func NewAggregator(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}

// UpdateUserState recomputes the per-dimension averages for userID from the
// scores table. AVG ignores NULL rows, and COALESCE keeps the previous
// value when a dimension has no scored rows at all.
func (a *Aggregator) UpdateUserState(ctx context.Context, userID string) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO user_state (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return fmt.Errorf("ensuring user state row: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		UPDATE user_state us SET
		    clarity_avg = COALESCE(sub.clarity_avg, us.clarity_avg),
		    tradeoff_avg = COALESCE(sub.tradeoff_avg, us.tradeoff_avg),
		    adaptability_avg = COALESCE(sub.adaptability_avg, us.adaptability_avg),
		    failure_awareness_avg = COALESCE(sub.failure_awareness_avg, us.failure_awareness_avg),
		    dsa_predict_skill = COALESCE(sub.dsa_predict_skill, us.dsa_predict_skill),
		    last_update = now()
		FROM (
		    SELECT
		        user_id,
		        AVG(clarity) AS clarity_avg,
		        AVG(tradeoffs) AS tradeoff_avg,
		        AVG(adaptability) AS adaptability_avg,
		        AVG(failure_awareness) AS failure_awareness_avg,
		        AVG(dsa_predict) AS dsa_predict_skill
		    FROM scores
		    WHERE user_id = $1
		    GROUP BY user_id
		) AS sub
		WHERE us.user_id = sub.user_id`,
		userID)
	if err != nil {
		return fmt.Errorf("aggregating scores: %w", err)
	}
	return nil
}
