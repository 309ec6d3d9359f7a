package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string

	// Storage. Empty DatabaseURL selects the in-memory store.
	DatabaseURL string
	TablePrefix string

	// RedisAddr enables the shared generation guard. Empty = in-process guard.
	RedisAddr string

	// Auth. Empty AuthJWKSURL serves every request as LocalUserID.
	AuthJWKSURL string
	LocalUserID string

	// LLM Configuration
	AnthropicAPIKey   string
	DefaultProvider   string
	DefaultModel      string
	GenerationTimeout time.Duration
	OutputLanguage    string

	// Source fetching
	CrossrefBaseURL string
	CrossrefMailto  string
	FetchTimeout    time.Duration

	// Logging
	LogDir      string
	LogMaxFiles int

	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		AuthJWKSURL: getEnv("AUTH_JWKS_URL", ""),
		LocalUserID: getEnv("LOCAL_USER_ID", "local"),

		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		DefaultProvider:   getEnv("DEFAULT_PROVIDER", "anthropic"),
		DefaultModel:      getEnv("DEFAULT_MODEL", "claude-haiku-4-5-20251001"),
		GenerationTimeout: getDuration("GENERATION_TIMEOUT", 3*time.Minute),
		OutputLanguage:    getEnv("OUTPUT_LANGUAGE", "Brazilian Portuguese (pt-BR)"),

		CrossrefBaseURL: getEnv("CROSSREF_BASE_URL", "https://api.crossref.org/works/"),
		CrossrefMailto:  getEnv("CROSSREF_MAILTO", ""),
		FetchTimeout:    getDuration("FETCH_TIMEOUT", 15*time.Second),

		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getInt("LOG_MAX_FILES", 10),

		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// UsesDatabase reports whether the postgres repositories are configured.
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
