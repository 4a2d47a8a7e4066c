// Package evaluator scores user answers with an LLM and folds the results
// into the per-user skill averages.
package evaluator

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// ScoreFields lists the five score dimensions in wire order.
var ScoreFields = []string{"clarity", "tradeoffs", "adaptability", "failure_awareness", "dsa_predict"}

// Scores holds one evaluation result. A nil entry means the model did not
// produce a usable number for that dimension.
type Scores map[string]*float64

var (
	clarityBlockRe = regexp.MustCompile(`\{[^{}]*"clarity"[^{}]*\}`)
	anyBlockRe     = regexp.MustCompile(`(?s)\{.*?\}`)
)

// ParseScores extracts the five scores from an LLM reply. It first tries a
// direct JSON parse, then falls back to extracting a JSON block from
// surrounding prose. When everything fails, all entries are nil.
func ParseScores(content string) Scores {
	scores := Scores{}
	for _, f := range ScoreFields {
		scores[f] = nil
	}

	if applyJSON(scores, strings.TrimSpace(content)) {
		return scores
	}
	for _, re := range []*regexp.Regexp{clarityBlockRe, anyBlockRe} {
		if block := re.FindString(content); block != "" && applyJSON(scores, block) {
			return scores
		}
	}
	slog.Warn("Failed to parse scores from LLM response", "content", truncate(content, 200))
	return scores
}

func applyJSON(scores Scores, raw string) bool {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return false
	}
	for _, field := range ScoreFields {
		if v, ok := data[field]; ok && v != nil {
			if n, ok := toFloat(v); ok {
				scores[field] = &n
			}
		}
	}
	return true
}

// toFloat accepts JSON numbers and numeric strings; models quote values
// often enough that strings count as usable.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return n, err == nil
	}
	return 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
