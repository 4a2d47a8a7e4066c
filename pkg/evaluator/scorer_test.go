package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoresDirectJSON(t *testing.T) {
	scores := ParseScores(`{"clarity": 0.8, "tradeoffs": 0.6, "adaptability": 0.7, "failure_awareness": 0.5, "dsa_predict": null}`)

	require.NotNil(t, scores["clarity"])
	assert.Equal(t, 0.8, *scores["clarity"])
	assert.Equal(t, 0.6, *scores["tradeoffs"])
	assert.Nil(t, scores["dsa_predict"])
}

func TestParseScoresEmbeddedInProse(t *testing.T) {
	scores := ParseScores(`Here is my evaluation:

{"clarity": 0.9, "tradeoffs": 0.4, "adaptability": 0.5, "failure_awareness": 0.3, "dsa_predict": null}

Hope that helps!`)

	require.NotNil(t, scores["clarity"])
	assert.Equal(t, 0.9, *scores["clarity"])
	assert.Equal(t, 0.3, *scores["failure_awareness"])
}

func TestParseScoresPartialFields(t *testing.T) {
	scores := ParseScores(`{"clarity": 0.7}`)

	require.NotNil(t, scores["clarity"])
	assert.Equal(t, 0.7, *scores["clarity"])
	assert.Nil(t, scores["tradeoffs"])
	assert.Nil(t, scores["adaptability"])
}

func TestParseScoresGarbage(t *testing.T) {
	for _, content := range []string{"", "not json at all", "{broken json"} {
		scores := ParseScores(content)
		for _, field := range ScoreFields {
			assert.Nil(t, scores[field], "field %s for input %q", field, content)
		}
	}
}

func TestParseScoresNonNumericValues(t *testing.T) {
	scores := ParseScores(`{"clarity": "high", "tradeoffs": 0.5}`)
	assert.Nil(t, scores["clarity"])
	require.NotNil(t, scores["tradeoffs"])
	assert.Equal(t, 0.5, *scores["tradeoffs"])
}

func TestParseScoresQuotedNumbers(t *testing.T) {
	scores := ParseScores(`{"clarity": "0.85", "tradeoffs": " 0.4 ", "adaptability": 0.7}`)

	require.NotNil(t, scores["clarity"])
	assert.Equal(t, 0.85, *scores["clarity"])
	require.NotNil(t, scores["tradeoffs"])
	assert.Equal(t, 0.4, *scores["tradeoffs"])
	assert.Equal(t, 0.7, *scores["adaptability"])
}

func TestBuildScoringPrompt(t *testing.T) {
	prompt := BuildScoringPrompt("What is a mutex?", "A lock.")

	assert.Contains(t, prompt, "What is a mutex?")
	assert.Contains(t, prompt, "A lock.")
	assert.Contains(t, prompt, "Output JSON only")
	assert.Contains(t, prompt, `"dsa_predict": null`)
}
