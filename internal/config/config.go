// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/prohealth/prohealth/internal/advice"
	"github.com/prohealth/prohealth/internal/database"
)

// History backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// DefaultSQLitePath is where local history lives when HISTORY_SQLITE_PATH is unset.
const DefaultSQLitePath = "data/prohealth.db"

// Config holds the settings shared by the API server and the CLI.
type Config struct {
	Port        string
	Environment string
	RequireTLS  bool

	HistoryBackend    string
	HistorySQLitePath string
	Database          database.Config

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	AdviceTimeout time.Duration

	AdminSigningKey string

	OTelEnabled     bool
	OTelEndpoint    string
	OTelInsecure    bool
	OTelSampleRatio float64
	FlagCacheTTL    time.Duration
	ShutdownTimeout time.Duration
}

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// FromEnv builds a Config from the process environment.
func FromEnv() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using lookup to resolve variables. All invalid
// values are reported together.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	p := parser{lookup: lookup}

	cfg := Config{
		Port:        p.str("APP_PORT", "8080"),
		Environment: p.str("APP_ENV", "development"),
		RequireTLS:  p.boolean("REQUIRE_TLS", false),

		HistoryBackend:    strings.ToLower(p.str("HISTORY_BACKEND", BackendSQLite)),
		HistorySQLitePath: p.str("HISTORY_SQLITE_PATH", DefaultSQLitePath),
		Database: database.Config{
			Host:            p.str("DB_HOST", "localhost"),
			Port:            p.integer("DB_PORT", 5432),
			User:            p.str("DB_USER", "prohealth"),
			Password:        p.str("DB_PASSWORD", "localdev"),
			Database:        p.str("DB_NAME", "prohealth"),
			SSLMode:         p.str("DB_SSL_MODE", "disable"),
			MaxOpenConns:    p.integer("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    p.integer("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		GeminiAPIKey:  p.str("GEMINI_API_KEY", ""),
		GeminiModel:   p.str("GEMINI_MODEL", ""),
		GeminiBaseURL: p.str("GEMINI_BASE_URL", ""),
		AdviceTimeout: p.duration("ADVICE_TIMEOUT", advice.DefaultTimeout),

		AdminSigningKey: p.str("ADMIN_JWT_SIGNING_KEY", ""),

		OTelEnabled:     p.boolean("OTEL_ENABLED", false),
		OTelEndpoint:    p.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelInsecure:    p.boolean("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTelSampleRatio: p.float("OTEL_SAMPLE_RATIO", 1),
		FlagCacheTTL:    p.duration("FEATURE_FLAG_CACHE_TTL", time.Minute),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	switch cfg.HistoryBackend {
	case BackendSQLite, BackendPostgres, BackendMemory:
	default:
		p.errs = append(p.errs, fmt.Errorf("HISTORY_BACKEND: unknown backend %q", cfg.HistoryBackend))
	}
	if cfg.AdviceTimeout <= 0 {
		p.errs = append(p.errs, errors.New("ADVICE_TIMEOUT: must be positive"))
	}
	if cfg.OTelSampleRatio < 0 || cfg.OTelSampleRatio > 1 {
		p.errs = append(p.errs, errors.New("OTEL_SAMPLE_RATIO: must be between 0 and 1"))
	}

	return cfg, errors.Join(p.errs...)
}

// IsProduction reports whether the process runs in production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v, ok := p.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) float(key string, def float64) float64 {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) boolean(key string, def bool) bool {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}
