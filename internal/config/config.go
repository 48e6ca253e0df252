package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Catalog sources understood by CATALOG_SOURCE.
const (
	CatalogSourceStatic   = "static"
	CatalogSourceFile     = "file"
	CatalogSourcePostgres = "postgres"
	CatalogSourceHTTP     = "http"
)

const devSessionSecret = "dev-only-session-secret"

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	DatabaseURL        string
	CORSAllowedOrigins []string

	SessionSecret        string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	IdempotencyTTL       time.Duration

	CurrencyCode   string
	CurrencySymbol string

	CatalogSource   string
	CatalogFile     string
	CatalogURL      string
	CatalogCacheTTL time.Duration
	MigrateOnStart  bool

	RateLimit      string
	BodyLimitBytes int64

	QueueEnabled     bool
	QueueConcurrency int
	ReceiptMaxRetry  int
	ReceiptKeep      int64

	OutboundTimeout     time.Duration
	RetryBase           time.Duration
	RetryMaxAttempts    int
	RetryJitterPercent  int
	CircuitMinRequests  int
	CircuitFailureRatio float64
	CircuitOpenFor      time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		SessionSecret:        strings.TrimSpace(k.String("SESSION_SECRET")),
		SessionTTL:           parseDuration(k.String("SESSION_TTL"), "30m"),
		SessionSweepInterval: parseDuration(k.String("SESSION_SWEEP_INTERVAL"), "1m"),
		IdempotencyTTL:       parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		CurrencyCode:   strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "BRL")),
		CurrencySymbol: valueOrDefault(k.String("CURRENCY_SYMBOL"), "R$"),

		CatalogSource:   strings.ToLower(valueOrDefault(k.String("CATALOG_SOURCE"), CatalogSourceStatic)),
		CatalogFile:     strings.TrimSpace(k.String("CATALOG_FILE")),
		CatalogURL:      strings.TrimSpace(k.String("CATALOG_URL")),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		MigrateOnStart:  parseBool(k.String("MIGRATE_ON_START")),

		RateLimit:      valueOrDefault(k.String("RATE_LIMIT"), "120-M"),
		BodyLimitBytes: int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64<<10)),

		QueueEnabled:     parseBool(k.String("QUEUE_ENABLED")),
		QueueConcurrency: parseInt(k.String("QUEUE_CONCURRENCY"), 5),
		ReceiptMaxRetry:  parseInt(k.String("RECEIPT_MAX_RETRY"), 5),
		ReceiptKeep:      int64(parseInt(k.String("RECEIPT_KEEP"), 100)),

		OutboundTimeout:     parseDuration(k.String("OUTBOUND_TIMEOUT"), "3s"),
		RetryBase:           parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryMaxAttempts:    parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryJitterPercent:  parseInt(k.String("RETRY_JITTER_PERCENT"), 20),
		CircuitMinRequests:  parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 5),
		CircuitFailureRatio: parseFloat(k.String("CIRCUIT_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:      parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),
	}

	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("SESSION_SECRET is required")
		}
		cfg.SessionSecret = devSessionSecret
	}
	switch cfg.CatalogSource {
	case CatalogSourceStatic:
	case CatalogSourceFile:
		if cfg.CatalogFile == "" {
			return nil, errors.New("CATALOG_FILE is required when CATALOG_SOURCE=file")
		}
	case CatalogSourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when CATALOG_SOURCE=postgres")
		}
	case CatalogSourceHTTP:
		if cfg.CatalogURL == "" {
			return nil, errors.New("CATALOG_URL is required when CATALOG_SOURCE=http")
		}
	default:
		return nil, fmt.Errorf("unsupported CATALOG_SOURCE %q", cfg.CatalogSource)
	}
	if cfg.QueueEnabled && cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required when QUEUE_ENABLED=true")
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.AppEnv)) {
	case "prod", "production":
		return true
	default:
		return false
	}
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
