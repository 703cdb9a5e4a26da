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

	DBDSN     string
	JWTSecret string

	LogLevel string

	RateLimitRPM int
	SessionDays  int

	// Availability projection: slot width and the daily operating window.
	SlotMinutes  int
	DayOpenHour  int
	DayCloseHour int

	// Roster capacity bounds for match posts.
	RosterMin int
	RosterMax int

	WebhookURL         string
	WebhookTimeoutMS   int
	AuditRetentionDays int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("PS_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("PS_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("PS_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("PS_HTTP_ADDR", ":8080")

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PS_BASE_URL")), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("PS_BASE_URL is required")
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv("PS_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("PS_DB_DSN is required")
	}

	cfg.JWTSecret = os.Getenv("PS_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("PS_JWT_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("PS_JWT_SECRET must be at least 32 characters (currently %d)", len(cfg.JWTSecret))
	}

	cfg.LogLevel = getEnvOrDefault("PS_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("PS_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	var err error
	cfg.RateLimitRPM, err = getEnvIntOrDefault("PS_RATE_LIMIT_RPM", 120)
	if err != nil {
		return nil, err
	}

	cfg.SessionDays, err = getEnvIntOrDefault("PS_SESSION_DAYS", 7)
	if err != nil {
		return nil, err
	}

	cfg.SlotMinutes, err = getEnvIntOrDefault("PS_SLOT_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	if cfg.SlotMinutes <= 0 || cfg.SlotMinutes > 24*60 {
		return nil, fmt.Errorf("PS_SLOT_MINUTES must be between 1 and 1440 (got: %d)", cfg.SlotMinutes)
	}

	cfg.DayOpenHour, err = getEnvIntOrDefault("PS_DAY_OPEN_HOUR", 8)
	if err != nil {
		return nil, err
	}
	cfg.DayCloseHour, err = getEnvIntOrDefault("PS_DAY_CLOSE_HOUR", 23)
	if err != nil {
		return nil, err
	}
	if cfg.DayOpenHour < 0 || cfg.DayCloseHour > 24 || cfg.DayOpenHour >= cfg.DayCloseHour {
		return nil, fmt.Errorf("operating window PS_DAY_OPEN_HOUR..PS_DAY_CLOSE_HOUR is invalid (got: %d..%d)", cfg.DayOpenHour, cfg.DayCloseHour)
	}

	cfg.RosterMin, err = getEnvIntOrDefault("PS_ROSTER_MIN", 4)
	if err != nil {
		return nil, err
	}
	cfg.RosterMax, err = getEnvIntOrDefault("PS_ROSTER_MAX", 22)
	if err != nil {
		return nil, err
	}
	if cfg.RosterMin < 2 || cfg.RosterMin > cfg.RosterMax {
		return nil, fmt.Errorf("roster bounds PS_ROSTER_MIN..PS_ROSTER_MAX are invalid (got: %d..%d)", cfg.RosterMin, cfg.RosterMax)
	}

	cfg.WebhookURL = strings.TrimSpace(os.Getenv("PS_WEBHOOK_URL"))

	cfg.WebhookTimeoutMS, err = getEnvIntOrDefault("PS_WEBHOOK_TIMEOUT_MS", 2000)
	if err != nil {
		return nil, err
	}
	if cfg.WebhookTimeoutMS <= 0 || cfg.WebhookTimeoutMS > 30000 {
		return nil, fmt.Errorf("PS_WEBHOOK_TIMEOUT_MS must be between 1 and 30000 (got: %d)", cfg.WebhookTimeoutMS)
	}

	cfg.AuditRetentionDays, err = getEnvIntOrDefault("PS_AUDIT_RETENTION_DAYS", 180)
	if err != nil {
		return nil, err
	}
	if cfg.AuditRetentionDays < 1 {
		return nil, fmt.Errorf("PS_AUDIT_RETENTION_DAYS must be positive (got: %d)", cfg.AuditRetentionDays)
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
		"PS_ENV":                  c.Env,
		"PS_HTTP_ADDR":            c.HTTPAddr,
		"PS_BASE_URL":             c.BaseURL,
		"PS_DB_DSN":               redactDSN(c.DBDSN),
		"PS_JWT_SECRET":           "[REDACTED]",
		"PS_LOG_LEVEL":            c.LogLevel,
		"PS_RATE_LIMIT_RPM":       strconv.Itoa(c.RateLimitRPM),
		"PS_SESSION_DAYS":         strconv.Itoa(c.SessionDays),
		"PS_SLOT_MINUTES":         strconv.Itoa(c.SlotMinutes),
		"PS_DAY_OPEN_HOUR":        strconv.Itoa(c.DayOpenHour),
		"PS_DAY_CLOSE_HOUR":       strconv.Itoa(c.DayCloseHour),
		"PS_ROSTER_MIN":           strconv.Itoa(c.RosterMin),
		"PS_ROSTER_MAX":           strconv.Itoa(c.RosterMax),
		"PS_WEBHOOK_URL":          redactURL(c.WebhookURL),
		"PS_WEBHOOK_TIMEOUT_MS":   strconv.Itoa(c.WebhookTimeoutMS),
		"PS_AUDIT_RETENTION_DAYS": strconv.Itoa(c.AuditRetentionDays),
	}
}

func getEnvOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvIntOrDefault(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %s)", key, value)
	}
	return n, nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	// Hide everything between "//" and "@" (credentials).
	start := strings.Index(dsn, "//")
	at := strings.Index(dsn, "@")
	if start == -1 || at == -1 || at < start {
		return "[REDACTED]"
	}
	return dsn[:start+2] + "[REDACTED]" + dsn[at:]
}

func redactURL(url string) string {
	if url == "" {
		return ""
	}
	return "[SET]"
}
