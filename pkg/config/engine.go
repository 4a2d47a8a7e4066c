package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// EngineConfig holds the decision engine's tunable constants. Loaded once at
// startup; treated as immutable afterwards.
type EngineConfig struct {
	// Score thresholds.
	WeaknessThreshold float64 // below this a skill needs remediation
	StrengthThreshold float64 // at or above this a skill is healthy
	CriticalThreshold float64 // below this a weakness is critical

	// Trend smoothing.
	DecayAlpha      float64 // EWMA weight for the newest observation
	ScoreWindowDays int     // history window for rate-of-change

	// Signal weights. WeightDiversity is a bonus on top of the base blend.
	WeightWeakness  float64
	WeightTrend     float64
	WeightRecency   float64
	WeightGoal      float64
	WeightPattern   float64
	WeightDiversity float64

	// Repetition guards.
	MaxConsecutiveSameModule int
	MinModulesBeforeRepeat   int

	// Reason-decoration LLM call.
	LLMTimeout     time.Duration
	LLMMaxTokens   int
	LLMTemperature float64

	// Circuit breaker defaults.
	CBFailureThreshold int
	CBRecoveryTimeout  time.Duration
	CBHalfOpenMax      int

	// Service registry health probing.
	HealthCheckInterval time.Duration
	HealthProbeTimeout  time.Duration

	// Metrics.
	MetricsBufferSize int
}

// DefaultEngineConfig returns the production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WeaknessThreshold: 0.4,
		StrengthThreshold: 0.75,
		CriticalThreshold: 0.2,

		DecayAlpha:      0.3,
		ScoreWindowDays: 30,

		WeightWeakness:  0.40,
		WeightTrend:     0.15,
		WeightRecency:   0.15,
		WeightGoal:      0.15,
		WeightPattern:   0.15,
		WeightDiversity: 0.05,

		MaxConsecutiveSameModule: 3,
		MinModulesBeforeRepeat:   1,

		LLMTimeout:     10 * time.Second,
		LLMMaxTokens:   200,
		LLMTemperature: 0.3,

		CBFailureThreshold: 5,
		CBRecoveryTimeout:  60 * time.Second,
		CBHalfOpenMax:      2,

		HealthCheckInterval: 30 * time.Second,
		HealthProbeTimeout:  5 * time.Second,

		MetricsBufferSize: 1000,
	}
}

// LoadEngineConfig returns the defaults with any ORCH_* environment
// overrides applied. Invalid values are logged and skipped.
func LoadEngineConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	overrideFloat("ORCH_WEAKNESS_THRESHOLD", &cfg.WeaknessThreshold)
	overrideFloat("ORCH_STRENGTH_THRESHOLD", &cfg.StrengthThreshold)
	overrideFloat("ORCH_DECAY_ALPHA", &cfg.DecayAlpha)
	overrideInt("ORCH_SCORE_WINDOW_DAYS", &cfg.ScoreWindowDays)
	overrideSeconds("ORCH_LLM_TIMEOUT", &cfg.LLMTimeout)
	overrideInt("ORCH_CB_FAILURE_THRESHOLD", &cfg.CBFailureThreshold)
	overrideSeconds("ORCH_CB_RECOVERY_TIMEOUT", &cfg.CBRecoveryTimeout)
	overrideSeconds("ORCH_HEALTH_CHECK_INTERVAL", &cfg.HealthCheckInterval)
	return cfg
}

func overrideFloat(key string, dst *float64) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Ignoring invalid config override", "key", key, "value", raw)
		return
	}
	*dst = v
}

func overrideInt(key string, dst *int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring invalid config override", "key", key, "value", raw)
		return
	}
	*dst = v
}

func overrideSeconds(key string, dst *time.Duration) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("Ignoring invalid config override", "key", key, "value", raw)
		return
	}
	*dst = time.Duration(v) * time.Second
}
