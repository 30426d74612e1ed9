package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string
	BaseURL  string

	DBDSN         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	LogLevel string

	RateLimitRPM int

	WaitlistURL      string
	TransactionalURL string
	SiteID           string
	LoopsAPIKey      string
	LoopsTimeoutMS   int

	InviteTTLHours int
	ResetTTLMin    int
	SessionDays    int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("PU_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("PU_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("PU_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("PU_HTTP_ADDR", ":8080")

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PU_BASE_URL")), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("PU_BASE_URL is required")
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv("PU_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("PU_DB_DSN is required")
	}

	cfg.RedisAddr = getEnvOrDefault("PU_REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("PU_REDIS_PASSWORD")

	var err error
	cfg.RedisDB, err = getEnvIntOrDefault("PU_REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg.JWTSecret = os.Getenv("PU_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("PU_JWT_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("PU_JWT_SECRET must be at least 32 characters (currently %d)", len(cfg.JWTSecret))
	}

	cfg.LogLevel = getEnvOrDefault("PU_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("PU_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	cfg.RateLimitRPM, err = getEnvIntOrDefault("PU_RATE_LIMIT_RPM", 60)
	if err != nil {
		return nil, err
	}

	cfg.WaitlistURL = strings.TrimSpace(os.Getenv("PU_WAITLIST_URL"))
	if cfg.WaitlistURL == "" {
		return nil, fmt.Errorf("PU_WAITLIST_URL is required")
	}

	cfg.TransactionalURL = strings.TrimSpace(os.Getenv("PU_TRANSACTIONAL_URL"))

	cfg.SiteID = getEnvOrDefault("PU_SITE_ID", "pilotup.io")

	cfg.LoopsAPIKey = os.Getenv("PU_LOOPS_API_KEY")

	cfg.LoopsTimeoutMS, err = getEnvIntOrDefault("PU_LOOPS_TIMEOUT_MS", 5000)
	if err != nil {
		return nil, err
	}
	if cfg.LoopsTimeoutMS <= 0 || cfg.LoopsTimeoutMS > 30000 {
		return nil, fmt.Errorf("PU_LOOPS_TIMEOUT_MS must be between 1 and 30000 (got: %d)", cfg.LoopsTimeoutMS)
	}

	cfg.InviteTTLHours, err = getEnvIntOrDefault("PU_INVITE_TTL_HOURS", 7*24)
	if err != nil {
		return nil, err
	}
	if cfg.InviteTTLHours <= 0 {
		return nil, fmt.Errorf("PU_INVITE_TTL_HOURS must be positive (got: %d)", cfg.InviteTTLHours)
	}

	cfg.ResetTTLMin, err = getEnvIntOrDefault("PU_RESET_TTL_MIN", 60)
	if err != nil {
		return nil, err
	}
	if cfg.ResetTTLMin <= 0 {
		return nil, fmt.Errorf("PU_RESET_TTL_MIN must be positive (got: %d)", cfg.ResetTTLMin)
	}

	cfg.SessionDays, err = getEnvIntOrDefault("PU_SESSION_DAYS", 7)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDev returns true if running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// RedactedValues returns a map of config values with secrets redacted.
func (c *Config) RedactedValues() map[string]string {
	return map[string]string{
		"PU_ENV":               c.Env,
		"PU_HTTP_ADDR":         c.HTTPAddr,
		"PU_BASE_URL":          c.BaseURL,
		"PU_DB_DSN":            redactDSN(c.DBDSN),
		"PU_REDIS_ADDR":        c.RedisAddr,
		"PU_REDIS_DB":          fmt.Sprintf("%d", c.RedisDB),
		"PU_JWT_SECRET":        "[REDACTED]",
		"PU_LOG_LEVEL":         c.LogLevel,
		"PU_RATE_LIMIT_RPM":    fmt.Sprintf("%d", c.RateLimitRPM),
		"PU_WAITLIST_URL":      c.WaitlistURL,
		"PU_TRANSACTIONAL_URL": c.TransactionalURL,
		"PU_SITE_ID":           c.SiteID,
		"PU_LOOPS_API_KEY":     "[REDACTED]",
		"PU_LOOPS_TIMEOUT_MS":  fmt.Sprintf("%d", c.LoopsTimeoutMS),
		"PU_INVITE_TTL_HOURS":  fmt.Sprintf("%d", c.InviteTTLHours),
		"PU_RESET_TTL_MIN":     fmt.Sprintf("%d", c.ResetTTLMin),
		"PU_SESSION_DAYS":      fmt.Sprintf("%d", c.SessionDays),
	}
}

func redactDSN(dsn string) string {
	if start := strings.Index(dsn, "://"); start != -1 {
		if end := strings.Index(dsn[start+3:], "@"); end != -1 {
			return dsn[:start+3] + "[REDACTED]" + dsn[start+3+end:]
		}
	}
	return dsn
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}
