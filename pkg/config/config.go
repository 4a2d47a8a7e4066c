package config

import (
	"os"
	"strings"
)

// Config is the process-wide configuration assembled at startup.
type Config struct {
	Engine  EngineConfig
	Modules *ModuleRegistry
	Auth    AuthConfig
	CORS    CORSConfig
	LLM     LLMConfig
}

// AuthConfig holds JWT verification secrets. Tokens are tried against the
// primary secret first, then the legacy one during key rotation.
type AuthConfig struct {
	JWTSecret       string
	LegacyJWTSecret string
}

// Enabled reports whether request authentication is configured.
func (a AuthConfig) Enabled() bool { return a.JWTSecret != "" }

// CORSConfig controls cross-origin access. AllowAll reflects a wildcard
// origin list; credentials are never allowed with a wildcard.
type CORSConfig struct {
	AllowedOrigins []string
	AllowAll       bool
}

// AllowsOrigin reports whether origin may access the API.
func (c CORSConfig) AllowsOrigin(origin string) bool {
	if c.AllowAll {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// LLMConfig holds the chat-completions providers for reason decoration and
// interaction scoring. The fallback provider is used when the primary fails.
type LLMConfig struct {
	PrimaryURL   string
	PrimaryKey   string
	PrimaryModel string

	FallbackURL   string
	FallbackKey   string
	FallbackModel string
}

// Load assembles the full configuration from defaults plus environment
// overrides.
func Load() *Config {
	return &Config{
		Engine:  LoadEngineConfig(),
		Modules: DefaultModuleRegistry(),
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			LegacyJWTSecret: os.Getenv("JWT_LEGACY_SECRET"),
		},
		CORS: loadCORSConfig(),
		LLM: LLMConfig{
			PrimaryURL:    getEnvOrDefault("LLM_API_URL", "https://api.groq.com/openai/v1/chat/completions"),
			PrimaryKey:    os.Getenv("LLM_API_KEY"),
			PrimaryModel:  getEnvOrDefault("LLM_MODEL", "llama-3.3-70b-versatile"),
			FallbackURL:   getEnvOrDefault("LLM_FALLBACK_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
			FallbackKey:   os.Getenv("LLM_FALLBACK_API_KEY"),
			FallbackModel: getEnvOrDefault("LLM_FALLBACK_MODEL", "meta-llama/llama-3.3-70b-instruct"),
		},
	}
}

func loadCORSConfig() CORSConfig {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" || raw == "*" {
		return CORSConfig{AllowAll: true}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return CORSConfig{AllowAll: true}
		}
		if o != "" {
			origins = append(origins, o)
		}
	}
	return CORSConfig{AllowedOrigins: origins}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
