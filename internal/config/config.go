package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/clinicdesk-ai/clinicdesk/internal/openemr"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// OpenEMR API connection
	OpenEMRBaseURL      string
	OpenEMRClientID     string
	OpenEMRClientSecret string
	OpenEMRUsername     string
	OpenEMRPassword     string
	OpenEMRScopes       string
	OpenEMRTimeout      time.Duration

	// Tool endpoint protection
	ToolAuthSecret string
	RateLimitRPS   float64
	RateLimitBurst int

	// Audit trail storage (optional; audit is log-only when empty)
	DatabaseURL string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OpenEMRBaseURL:      strings.TrimRight(getEnv("OPENEMR_BASE_URL", "http://openemr:80"), "/"),
		OpenEMRClientID:     getEnv("OPENEMR_CLIENT_ID", ""),
		OpenEMRClientSecret: getEnv("OPENEMR_CLIENT_SECRET", ""),
		OpenEMRUsername:     getEnv("OPENEMR_USERNAME", "admin"),
		OpenEMRPassword:     getEnv("OPENEMR_PASSWORD", "pass"),
		OpenEMRScopes:       getEnv("OPENEMR_SCOPES", openemr.DefaultScopes),
		OpenEMRTimeout:      getEnvAsDuration("OPENEMR_TIMEOUT", 30*time.Second),

		ToolAuthSecret: getEnv("TOOL_AUTH_SECRET", ""),
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 10),

		DatabaseURL: getEnv("DATABASE_URL", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
