package evaluator

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/studymate/orchestrator/pkg/llm"
	"github.com/studymate/orchestrator/pkg/metrics"
)

const (
	scoringTimeout     = 20 * time.Second
	scoringTemperature = 0.1
	scoringMaxTokens   = 500
)

// Request is one answer to evaluate.
type Request struct {
	UserID   string `json:"user_id"`
	Module   string `json:"module"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Service runs the evaluation pipeline: persist the raw interaction, score
// it with the LLM, persist the scores, and refresh the user's aggregates.
// The pipeline never fails the caller; every step degrades by logging.
type Service struct {
	db         *sql.DB
	llm        *llm.Client
	aggregator *Aggregator
	collector  *metrics.Collector
}

// NewService wires the pipeline.
func NewService(db *sql.DB, llmClient *llm.Client, collector *metrics.Collector) *Service {
	return &Service{
		db:         db,
		llm:        llmClient,
		aggregator: NewAggregator(db),
		collector:  collector,
	}
}

// Evaluate runs the full pipeline for one answer. Errors are logged, never
// returned: the caller always reports ok to the user.
func (s *Service) Evaluate(ctx context.Context, req Request) {
	start := time.Now()

	if err := s.saveInteraction(ctx, req); err != nil {
		slog.Error("Failed to save interaction", "user_id", req.UserID, "error", err)
		s.collector.Counter("errors_total").Inc("evaluator")
	}

	scores := s.score(ctx, req)

	if err := s.saveScores(ctx, req, scores); err != nil {
		slog.Error("Failed to save scores", "user_id", req.UserID, "error", err)
		s.collector.Counter("errors_total").Inc("evaluator")
		return
	}

	if err := s.aggregator.UpdateUserState(ctx, req.UserID); err != nil {
		slog.Error("Failed to update user state aggregates", "user_id", req.UserID, "error", err)
		s.collector.Counter("errors_total").Inc("evaluator")
		return
	}

	slog.Info("Evaluation completed",
		"user_id", req.UserID, "module", req.Module,
		"elapsed", time.Since(start).Round(time.Millisecond))
}

func (s *Service) saveInteraction(ctx context.Context, req Request) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (user_id, module, step_type, question, user_answer)
		 VALUES ($1, $2, $3, $4, $5)`,
		req.UserID, req.Module, "core", req.Question, req.Answer)
	if err != nil {
		return fmt.Errorf("inserting interaction: %w", err)
	}
	return nil
}

// score calls the LLM and parses its reply. Any failure yields all-nil
// scores, which the aggregation step treats as "no new evidence".
func (s *Service) score(ctx context.Context, req Request) Scores {
	prompt := BuildScoringPrompt(req.Question, req.Answer)

	ctx, cancel := context.WithTimeout(ctx, scoringTimeout)
	defer cancel()

	start := time.Now()
	content, err := s.llm.Complete(ctx, prompt, scoringTemperature, scoringMaxTokens)
	s.collector.Histogram("llm_latency_ms").Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		slog.Warn("LLM scoring failed", "user_id", req.UserID, "error", err)
		s.collector.Counter("llm_failures").Inc("scoring")
		return ParseScores("")
	}
	return ParseScores(content)
}

func (s *Service) saveScores(ctx context.Context, req Request, scores Scores) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (user_id, module, clarity, tradeoffs, adaptability, failure_awareness, dsa_predict)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.UserID, req.Module,
		nullable(scores["clarity"]),
		nullable(scores["tradeoffs"]),
		nullable(scores["adaptability"]),
		nullable(scores["failure_awareness"]),
		nullable(scores["dsa_predict"]))
	if err != nil {
		return fmt.Errorf("inserting scores: %w", err)
	}
	return nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
