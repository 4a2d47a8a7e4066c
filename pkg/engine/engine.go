// Package engine ranks candidate learning modules for a user and produces
// an explainable routing decision.
//
// A decision is built in seven deterministic steps: classify urgency, filter
// candidates by service health, score each candidate across five weighted
// signals, apply cooldown and diversity adjustments, sort, run the diversity
// filter, and assemble the Decision with a confidence value and a rule-based
// reason string.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/studymate/orchestrator/pkg/config"
	"github.com/studymate/orchestrator/pkg/models"
)

// Engine scores and selects modules. Safe for concurrent use; all state is
// immutable after construction.
type Engine struct {
	cfg     config.EngineConfig
	modules *config.ModuleRegistry
}

// New returns an engine over the given tunables and module catalog.
func New(cfg config.EngineConfig, modules *config.ModuleRegistry) *Engine {
	return &Engine{cfg: cfg, modules: modules}
}

// Decide produces a routing decision for state. memory may be nil; signals
// that depend on it fall back to neutral defaults. serviceHealth maps module
// names to availability; modules absent from the map are assumed available.
func (e *Engine) Decide(state models.UserState, memory *models.MemoryContext, serviceHealth map[string]bool) models.Decision {
	depth := e.determineDepth(state)
	candidates := e.candidates(state, serviceHealth)

	if len(candidates) == 0 {
		// Should be impossible: project_studio is always a candidate.
		fallback, _ := e.modules.Get(config.FallbackModule)
		return models.Decision{
			NextModule:  config.FallbackModule,
			Reason:      "All modules are available. Apply your skills freely!",
			RuleReason:  "No candidates matched, falling back",
			Description: fallback.Description,
			Depth:       depth,
			Scores:      state.Scores.ToMap(),
			Confidence:  0.5,
		}
	}

	scored := make([]models.ModuleScore, 0, len(candidates))
	for _, name := range candidates {
		scored = append(scored, e.scoreCandidate(name, state, memory))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].TotalScore > scored[j].TotalScore
	})

	winner := e.applyDiversityFilter(scored, state)

	def, err := e.modules.Get(winner.Module)
	if err != nil {
		def, _ = e.modules.Get(config.FallbackModule)
	}
	weaknessTrigger := state.Scores.WeakestDimension(e.cfg.WeaknessThreshold)
	ruleReason := e.buildRuleReason(winner, state, weaknessTrigger)

	top := scored
	if len(top) > 5 {
		top = top[:5]
	}
	return models.Decision{
		NextModule:      winner.Module,
		Reason:          ruleReason,
		RuleReason:      ruleReason,
		Description:     def.Description,
		Depth:           depth,
		WeaknessTrigger: weaknessTrigger,
		Scores:          state.Scores.ToMap(),
		Confidence:      e.confidence(scored),
		CandidateScores: top,
	}
}

// Depth classifies the urgency of a state snapshot without making a
// decision. Used by the state read endpoint.
func (e *Engine) Depth(state models.UserState) models.DecisionDepth {
	return e.determineDepth(state)
}

// determineDepth classifies the urgency of the decision.
func (e *Engine) determineDepth(state models.UserState) models.DecisionDepth {
	scores := state.Scores.ToMap()
	for _, v := range scores {
		if v < e.cfg.CriticalThreshold {
			return models.DepthCritical
		}
	}
	for _, v := range scores {
		if v < e.cfg.WeaknessThreshold {
			return models.DepthRemediation
		}
	}
	allDefault := true
	for _, v := range scores {
		if v < 0.99 {
			allDefault = false
			break
		}
	}
	if allDefault && len(state.RecentModules) == 0 {
		return models.DepthOnboarding
	}
	return models.DepthNormal
}

// candidates returns the eligible modules. Unhealthy services are excluded;
// onboarding is excluded once the user has history.
func (e *Engine) candidates(state models.UserState, serviceHealth map[string]bool) []string {
	var out []string
	for _, name := range e.modules.Names() {
		def, _ := e.modules.Get(name)
		if def.BaseURL != "" {
			if healthy, known := serviceHealth[name]; known && !healthy {
				slog.Debug("Skipping unhealthy module", "module", name)
				continue
			}
		}
		if name == "onboarding" && len(state.RecentModules) > 0 {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (e *Engine) scoreCandidate(name string, state models.UserState, memory *models.MemoryContext) models.ModuleScore {
	def, _ := e.modules.Get(name)
	ms := models.ModuleScore{Module: name}

	ms.WeaknessSeverityScore = e.weaknessSeverity(def, state)
	ms.RateOfChangeScore = e.rateOfChange(memory)
	ms.RecencyScore = e.recency(name, state)
	ms.GoalAlignmentScore = e.goalAlignment(def, state)
	ms.PatternScore = e.patternSignal(def, memory)
	ms.CooldownPenalty = e.cooldownPenalty(name, state)
	ms.DiversityBonus = e.diversityBonus(name, state)

	ms.TotalScore = (ms.WeaknessSeverityScore*e.cfg.WeightWeakness +
		ms.RateOfChangeScore*e.cfg.WeightTrend +
		ms.RecencyScore*e.cfg.WeightRecency +
		ms.GoalAlignmentScore*e.cfg.WeightGoal +
		ms.PatternScore*e.cfg.WeightPattern +
		ms.DiversityBonus*e.cfg.WeightDiversity -
		ms.CooldownPenalty) * def.Weight
	return ms
}

// weaknessSeverity measures how much the module addresses the user's weakest
// skills. Modules with no remediation skills get traction only when every
// dimension is healthy.
func (e *Engine) weaknessSeverity(def config.ModuleDefinition, state models.UserState) float64 {
	if len(def.RemediationSkills) == 0 {
		if state.Scores.AllHealthy(e.cfg.WeaknessThreshold) {
			return 0.6
		}
		return 0.1
	}

	best := 0.0
	for _, skill := range def.RemediationSkills {
		val := state.Scores.Get(skill)
		var severity float64
		switch {
		case val < e.cfg.CriticalThreshold:
			severity = 1.0
		case val < e.cfg.WeaknessThreshold:
			severity = 1.0 - val/e.cfg.WeaknessThreshold
			if severity < 0.4 {
				severity = 0.4
			}
		default:
			severity = 0.0
		}
		if severity > best {
			best = severity
		}
	}
	return best
}

// rateOfChange reads the weakness/strength trend from memory events. More
// weakness events means a stronger need for intervention.
func (e *Engine) rateOfChange(memory *models.MemoryContext) float64 {
	if memory == nil || len(memory.RecentEvents) == 0 {
		return 0.5
	}
	var weakness, strength int
	for _, ev := range memory.RecentEvents {
		switch {
		case strings.Contains(ev.EventType, "weakness"):
			weakness++
		case strings.Contains(ev.EventType, "strength"):
			strength++
		}
	}
	total := weakness + strength
	if total == 0 {
		return 0.5
	}
	return float64(weakness) / float64(total)
}

// recency scores how long ago the module was last recommended. Modules never
// visited score high to encourage exploration.
func (e *Engine) recency(name string, state models.UserState) float64 {
	if len(state.RecentModules) == 0 {
		return 0.5
	}
	for idx, m := range state.RecentModules {
		if m == name {
			score := float64(idx) / float64(len(state.RecentModules))
			if score > 1.0 {
				score = 1.0
			}
			return score
		}
	}
	return 0.8
}

// goalAlignment averages the role profile's weights over the module's
// remediation skills, normalized from the profile range [0.7, 1.5].
func (e *Engine) goalAlignment(def config.ModuleDefinition, state models.UserState) float64 {
	if state.TargetRole == "" || len(def.RemediationSkills) == 0 {
		return 0.5
	}
	weights := config.RoleWeights(state.TargetRole)
	var sum float64
	for _, skill := range def.RemediationSkills {
		w, ok := weights[skill]
		if !ok {
			w = 1.0
		}
		sum += w
	}
	avg := sum / float64(len(def.RemediationSkills))
	norm := (avg - 0.7) / 0.8
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}

// patternSignal sums the confidence of memory patterns that mention the
// label of any skill this module remediates.
func (e *Engine) patternSignal(def config.ModuleDefinition, memory *models.MemoryContext) float64 {
	if memory == nil || len(memory.Patterns) == 0 {
		return 0.5
	}
	if len(def.RemediationSkills) == 0 {
		return 0.3
	}
	var relevant float64
	for _, p := range memory.Patterns {
		desc := strings.ToLower(p.Description)
		for _, skill := range def.RemediationSkills {
			label := strings.ToLower(config.SkillLabel(skill))
			if label != "" && strings.Contains(desc, label) {
				conf := p.Confidence
				if conf == 0 {
					conf = 0.5
				}
				relevant += conf
			}
		}
	}
	if relevant > 1.0 {
		return 1.0
	}
	return relevant
}

// cooldownPenalty discourages recommending a module again immediately.
func (e *Engine) cooldownPenalty(name string, state models.UserState) float64 {
	if len(state.RecentModules) == 0 {
		return 0.0
	}
	if state.RecentModules[0] == name {
		return 0.3
	}
	window := state.RecentModules
	if limit := e.cfg.MinModulesBeforeRepeat + 1; len(window) > limit {
		window = window[:limit]
	}
	for _, m := range window {
		if m == name {
			return 0.15
		}
	}
	return 0.0
}

// diversityBonus favors modules the user has visited least.
func (e *Engine) diversityBonus(name string, state models.UserState) float64 {
	total := 0
	for _, n := range state.ModuleVisitCounts {
		total += n
	}
	if total == 0 {
		total = 1
	}
	ratio := float64(state.ModuleVisitCounts[name]) / float64(total)
	bonus := 1.0 - ratio*3
	if bonus < 0 {
		return 0
	}
	return bonus
}

// applyDiversityFilter demotes the top choice to second place when the same
// module has already been recommended too many times in a row.
func (e *Engine) applyDiversityFilter(scored []models.ModuleScore, state models.UserState) models.ModuleScore {
	if len(state.RecentModules) == 0 {
		return scored[0]
	}
	last := state.RecentModules[0]
	consecutive := 0
	for _, m := range state.RecentModules {
		if m != last {
			break
		}
		consecutive++
	}
	if consecutive >= e.cfg.MaxConsecutiveSameModule && scored[0].Module == last && len(scored) > 1 {
		slog.Info("Diversity filter engaged",
			"module", last, "consecutive", consecutive, "switched_to", scored[1].Module)
		return scored[1]
	}
	return scored[0]
}

// confidence reflects the score gap between the top two candidates.
func (e *Engine) confidence(scored []models.ModuleScore) float64 {
	if len(scored) < 2 {
		return 1.0
	}
	top, second := scored[0].TotalScore, scored[1].TotalScore
	if top <= 0 {
		return 0.5
	}
	c := 0.5 + (top-second)/top
	if c < 0.3 {
		return 0.3
	}
	if c > 1.0 {
		return 1.0
	}
	return c
}

func (e *Engine) buildRuleReason(winner models.ModuleScore, state models.UserState, weaknessTrigger string) string {
	def, err := e.modules.Get(winner.Module)
	if err != nil {
		def, _ = e.modules.Get(config.FallbackModule)
	}

	if weaknessTrigger != "" {
		val := state.Scores.Get(weaknessTrigger)
		label := config.SkillLabel(weaknessTrigger)
		if val < e.cfg.CriticalThreshold {
			return fmt.Sprintf("Your %s score (%.2f) is critically low. Urgent practice in %s is recommended.",
				label, val, def.Label)
		}
		return fmt.Sprintf("Your %s score (%.2f) is below %.1f. %s will help you improve through targeted practice.",
			label, val, e.cfg.WeaknessThreshold, def.Label)
	}

	if state.Scores.AllHealthy(e.cfg.WeaknessThreshold) {
		return fmt.Sprintf("All your skills are healthy (>= %.1f). %s is recommended to apply and reinforce your knowledge.",
			e.cfg.WeaknessThreshold, def.Label)
	}
	return fmt.Sprintf("%s is your best next step based on your current skill profile.", def.Label)
}
