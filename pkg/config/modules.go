// Package config holds the orchestrator's static configuration: the module
// catalog, skill-dimension metadata, goal profiles, engine tunables, and
// process-level settings loaded from the environment.
package config

import (
	"fmt"
	"sort"
	"strings"
)

// FallbackModule is routed to when no candidate survives filtering.
const FallbackModule = "project_studio"

// ModuleDefinition describes one learning module in the catalog.
type ModuleDefinition struct {
	Name                string   `json:"name"`
	Label               string   `json:"label"`
	Description         string   `json:"description"`
	Route               string   `json:"route"`
	Port                int      `json:"port,omitempty"`
	BaseURL             string   `json:"base_url,omitempty"`
	RemediationSkills   []string `json:"remediation_skills,omitempty"`
	PrerequisiteModules []string `json:"prerequisite_modules,omitempty"`
	Weight              float64  `json:"weight"`
	CooldownMinutes     int      `json:"cooldown_minutes"`
}

// ModuleRegistry is the immutable catalog of routable modules.
type ModuleRegistry struct {
	modules map[string]ModuleDefinition
}

// NewModuleRegistry builds a registry from the given definitions.
func NewModuleRegistry(defs []ModuleDefinition) *ModuleRegistry {
	m := make(map[string]ModuleDefinition, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return &ModuleRegistry{modules: m}
}

// Get returns the definition for name.
func (r *ModuleRegistry) Get(name string) (ModuleDefinition, error) {
	d, ok := r.modules[name]
	if !ok {
		return ModuleDefinition{}, fmt.Errorf("unknown module %q", name)
	}
	return d, nil
}

// Has reports whether name is in the catalog.
func (r *ModuleRegistry) Has(name string) bool {
	_, ok := r.modules[name]
	return ok
}

// Names returns all module names, sorted.
func (r *ModuleRegistry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for n := range r.modules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the catalog size.
func (r *ModuleRegistry) Len() int { return len(r.modules) }

// DefaultModuleRegistry returns the production module catalog.
func DefaultModuleRegistry() *ModuleRegistry {
	return NewModuleRegistry([]ModuleDefinition{
		{
			Name:            "onboarding",
			Label:           "Onboarding",
			Description:     "Set up your goals, preferences, and learning profile.",
			Route:           "/onboarding",
			Weight:          0.5,
			CooldownMinutes: 1440,
		},
		{
			Name:              "production_interview",
			Label:             "Mock Interview",
			Description:       "Practice production thinking, clarity, and adaptability in realistic mock interviews.",
			Route:             "/mock-interview",
			Port:              8002,
			BaseURL:           "http://127.0.0.1:8002",
			RemediationSkills: []string{"clarity_avg", "adaptability_avg"},
			Weight:            1.2,
			CooldownMinutes:   15,
		},
		{
			Name:              "interactive_course",
			Label:             "Interactive Course",
			Description:       "Learn system design, tradeoffs, and failure analysis through AI-powered courses.",
			Route:             "/course-generator",
			Port:              8008,
			BaseURL:           "http://127.0.0.1:8008",
			RemediationSkills: []string{"tradeoff_avg", "failure_awareness_avg"},
			Weight:            1.0,
			CooldownMinutes:   20,
		},
		{
			Name:              "dsa_practice",
			Label:             "DSA Practice",
			Description:       "Strengthen algorithm fundamentals with AI-guided problem solving.",
			Route:             "/dsa-sheet",
			Port:              8004,
			BaseURL:           "http://127.0.0.1:8004",
			RemediationSkills: []string{"dsa_predict_skill"},
			Weight:            1.0,
			CooldownMinutes:   10,
		},
		{
			Name:            "resume_builder",
			Label:           "Resume Builder",
			Description:     "Optimize your resume for target roles with AI analysis.",
			Route:           "/resume-analyzer",
			Port:            8003,
			BaseURL:         "http://127.0.0.1:8003",
			Weight:          0.7,
			CooldownMinutes: 60,
		},
		{
			Name:                "project_studio",
			Label:               "Project Studio",
			Description:         "Apply your skills to a real project with multi-agent AI collaboration.",
			Route:               "/project-studio",
			Port:                8012,
			BaseURL:             "http://127.0.0.1:8012",
			PrerequisiteModules: []string{"production_interview", "interactive_course"},
			Weight:              0.9,
			CooldownMinutes:     30,
		},
	})
}

// EmbeddedServices run inside this process or its pods and are always
// considered healthy by the service registry.
var EmbeddedServices = []string{"evaluator", "orchestrator", "job-search"}

// SkillDimension carries display metadata for one score dimension.
type SkillDimension struct {
	Label             string `json:"label"`
	Description       string `json:"description"`
	RemediationModule string `json:"remediation_module"`
}

// SkillDimensions maps dimension names to their metadata.
var SkillDimensions = map[string]SkillDimension{
	"clarity_avg": {
		Label:             "Clarity",
		Description:       "Ability to explain thinking clearly and communicate solutions",
		RemediationModule: "production_interview",
	},
	"tradeoff_avg": {
		Label:             "Tradeoff Analysis",
		Description:       "Ability to evaluate and articulate engineering tradeoffs",
		RemediationModule: "interactive_course",
	},
	"adaptability_avg": {
		Label:             "Adaptability",
		Description:       "Flexibility in handling curveballs and changing requirements",
		RemediationModule: "production_interview",
	},
	"failure_awareness_avg": {
		Label:             "Failure Awareness",
		Description:       "Understanding of edge cases, failure modes, and system reliability",
		RemediationModule: "interactive_course",
	},
	"dsa_predict_skill": {
		Label:             "DSA Skills",
		Description:       "Data structures and algorithms problem-solving ability",
		RemediationModule: "dsa_practice",
	},
}

// SkillLabel returns the human label for a dimension, or the raw name when
// the dimension is unknown.
func SkillLabel(dimension string) string {
	if d, ok := SkillDimensions[dimension]; ok {
		return d.Label
	}
	return dimension
}

// GoalSkillWeights maps a target role to per-dimension emphasis multipliers
// used by the goal-alignment signal. Roles not listed fall back to "default".
var GoalSkillWeights = map[string]map[string]float64{
	"backend_engineer": {
		"clarity_avg":           1.0,
		"tradeoff_avg":          1.3,
		"adaptability_avg":      1.0,
		"failure_awareness_avg": 1.3,
		"dsa_predict_skill":     1.2,
	},
	"frontend_engineer": {
		"clarity_avg":           1.2,
		"tradeoff_avg":          1.0,
		"adaptability_avg":      1.3,
		"failure_awareness_avg": 0.8,
		"dsa_predict_skill":     0.9,
	},
	"fullstack_engineer": {
		"clarity_avg":           1.1,
		"tradeoff_avg":          1.2,
		"adaptability_avg":      1.1,
		"failure_awareness_avg": 1.1,
		"dsa_predict_skill":     1.1,
	},
	"ml_engineer": {
		"clarity_avg":           1.0,
		"tradeoff_avg":          1.3,
		"adaptability_avg":      1.0,
		"failure_awareness_avg": 1.2,
		"dsa_predict_skill":     1.4,
	},
	"devops_engineer": {
		"clarity_avg":           0.9,
		"tradeoff_avg":          1.2,
		"adaptability_avg":      1.1,
		"failure_awareness_avg": 1.5,
		"dsa_predict_skill":     0.7,
	},
	"default": {
		"clarity_avg":           1.0,
		"tradeoff_avg":          1.0,
		"adaptability_avg":      1.0,
		"failure_awareness_avg": 1.0,
		"dsa_predict_skill":     1.0,
	},
}

// RoleWeights returns the goal-alignment profile for targetRole, normalizing
// case and separators. Unknown roles get the default profile.
func RoleWeights(targetRole string) map[string]float64 {
	key := strings.ToLower(strings.TrimSpace(targetRole))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	if w, ok := GoalSkillWeights[key]; ok {
		return w
	}
	return GoalSkillWeights["default"]
}
