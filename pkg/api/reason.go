package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/studymate/orchestrator/pkg/models"
)

// The rules pick WHAT, the LLM explains WHY. Wording changes here change
// what every student reads, so edit with care.
const reasonPromptTemplate = `You are a career coach for a student on StudyMate, an AI learning platform.
The orchestrator chose %q (confidence: %.0f%%).
Rule reason: %s
Decision depth: %s
%s%s

Write 2 concise sentences:
1) What specific pattern you noticed in their data
2) Why this module will help them improve

Be specific, encouraging, and mention their target role if available.
No preamble, no bullet points — just the 2 sentences.`

const lowConfidenceNote = "\nNote: The engine was not very confident in this choice — multiple modules scored similarly."

// decorateReason asks the LLM for a human explanation of the decision. Any
// failure, timeout, or empty reply falls back to the deterministic rule
// reason.
func (s *Server) decorateReason(ctx context.Context, d models.Decision, st models.UserState) string {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Engine.LLMTimeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("Scores: ")
	for i, dim := range models.SkillDimensionNames {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %.2f", dim, d.Scores[dim])
	}
	if st.TargetRole != "" {
		sb.WriteString("\nTarget role: " + st.TargetRole)
	}
	if st.PrimaryFocus != "" {
		sb.WriteString("\nPrimary focus: " + st.PrimaryFocus)
	}

	note := ""
	if d.Confidence < 0.5 {
		note = lowConfidenceNote
	}
	prompt := fmt.Sprintf(reasonPromptTemplate,
		d.NextModule, d.Confidence*100, d.RuleReason, string(d.Depth), sb.String(), note)

	start := time.Now()
	text, err := s.llm.Complete(ctx, prompt, s.cfg.Engine.LLMTemperature, s.cfg.Engine.LLMMaxTokens)
	s.collector.Histogram("llm_latency_ms").Observe(float64(time.Since(start).Microseconds()) / 1000.0)

	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if err != nil {
			slog.Warn("LLM reasoning failed", "module", d.NextModule, "error", err)
		}
		s.collector.Counter("llm_failures").Inc("reasoning")
		return d.RuleReason
	}
	return text
}
