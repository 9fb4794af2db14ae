// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Storage (both optional, in-memory fallbacks are used when unset)
	DatabaseURL  string // PostgreSQL: audit log + risk assessments
	RedisURL     string // Redis: pending confirmations
	AuditLogPath string // JSONL audit file when no database is configured

	// Chat assistant
	FeatureRiskChat bool
	ConfirmTTL      time.Duration
	SweepInterval   time.Duration

	// Signal adapters
	AdapterTimeout  time.Duration
	AlphaVantageKey string
	FinnhubKey      string
	NYTKey          string

	// Downstream services
	RiskAPIBase string
	RiskAPILive bool // false = simulated risk API
	OMSBase     string
	OMSLive     bool // false = simulated order management

	// Language model
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	// Observability / protection
	OTLPEndpoint string
	RateLimitRPM int
	CORSOrigins  []string

	// MCP operator identity (cmd/mcp)
	MCPUserID string
}

const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultConfirmTTL     = 300 * time.Second
	DefaultSweepInterval  = 30 * time.Second
	DefaultAdapterTimeout = 10 * time.Second
	DefaultRiskAPIBase    = "https://risk-api.local"
	DefaultOMSBase        = "https://oms.local"
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultRateLimitRPM   = 120
	DefaultMCPUserID      = "demo"
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:       getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		AuditLogPath:    os.Getenv("AUDIT_LOG_PATH"),
		FeatureRiskChat: getEnvBool("FEATURE_RISK_CHAT", false),
		ConfirmTTL:      getEnvDuration("CONFIRM_TTL", DefaultConfirmTTL),
		SweepInterval:   getEnvDuration("CONFIRM_SWEEP_INTERVAL", DefaultSweepInterval),
		AdapterTimeout:  getEnvDuration("ADAPTER_TIMEOUT", DefaultAdapterTimeout),
		AlphaVantageKey: os.Getenv("ALPHA_KEY"),
		FinnhubKey:      os.Getenv("FINNHUB_KEY"),
		NYTKey:          os.Getenv("NYT_KEY"),
		RiskAPIBase:     getEnv("RISK_API_BASE", DefaultRiskAPIBase),
		RiskAPILive:     getEnvBool("RISK_API_LIVE", false),
		OMSBase:         getEnv("OMS_BASE", DefaultOMSBase),
		OMSLive:         getEnvBool("OMS_LIVE", false),
		LLMAPIKey:       os.Getenv("LLM_API_KEY"),
		LLMBaseURL:      os.Getenv("LLM_BASE_URL"),
		LLMModel:        getEnv("LLM_MODEL", DefaultLLMModel),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:    int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"*"}),
		MCPUserID:       getEnv("MCP_USER_ID", DefaultMCPUserID),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of development, staging, production, test (got %q)", c.Env)
	}

	if c.ConfirmTTL <= 0 {
		return fmt.Errorf("CONFIRM_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("CONFIRM_SWEEP_INTERVAL must be positive")
	}
	if c.AdapterTimeout <= 0 {
		return fmt.Errorf("ADAPTER_TIMEOUT must be positive")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}

	if c.RedisURL != "" {
		u, err := url.Parse(c.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("REDIS_URL must be a redis:// or rediss:// URL")
		}
	}

	if c.OMSLive && c.OMSBase == "" {
		return fmt.Errorf("OMS_BASE is required when OMS_LIVE is enabled")
	}
	if c.RiskAPILive && c.RiskAPIBase == "" {
		return fmt.Errorf("RISK_API_BASE is required when RISK_API_LIVE is enabled")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("300").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}
