package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every process-level setting. Values come from the
// environment only; nothing here is ever persisted.
type Config struct {
	Profile string

	ListenAddr  string
	CORSOrigins []string

	DatabaseDriver string
	DatabaseURL    string

	RedisEnabled bool
	RedisAddr    string
	RedisDB      int

	// MasterEncryptionKey protects custodial private keys at rest. It must
	// never appear in logs or in any encoded output.
	MasterEncryptionKey string

	// AccessCodeHash is the bcrypt hash of the access code gating issuance.
	AccessCodeHash string

	// IdentityIssuer/IdentityAudience/IdentitySecret verify signed identity
	// assertions presented at login.
	IdentityIssuer   string
	IdentityAudience string
	IdentitySecret   string

	SessionSweepInterval time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
}

// Load reads the configuration from the environment and validates it. The
// returned error strings keep the "parse"/"validate config:" prefixes that
// classifyConfigLoadError keys off.
func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Profile:                   normalizeConfigProfile(getEnv("APP_PROFILE", "dev")),
		ListenAddr:                getEnv("LISTEN_ADDR", ":8080"),
		CORSOrigins:               splitAndTrim(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		DatabaseDriver:            getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:               getEnv("DATABASE_URL", "file::memory:?cache=shared"),
		RedisAddr:                 getEnv("REDIS_ADDR", ""),
		MasterEncryptionKey:       os.Getenv("WALLET_ENCRYPTION_KEY"),
		AccessCodeHash:            os.Getenv("ACCESS_CODE_HASH"),
		IdentityIssuer:            getEnv("IDENTITY_ISSUER", "pulse-identity"),
		IdentityAudience:          getEnv("IDENTITY_AUDIENCE", "pulse-access"),
		IdentitySecret:            os.Getenv("IDENTITY_SECRET"),
		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "pulse-access"),
		OTELEnvironment:           getEnv("OTEL_ENVIRONMENT", "dev"),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:        getBool("OTEL_METRICS_ENABLED", false),
		OTELTracesEnabled:         getBool("OTEL_TRACES_ENABLED", false),
		OTELLogsEnabled:           getBool("OTEL_LOGS_ENABLED", false),
		RedisEnabled:              getBool("REDIS_ENABLED", false),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "error", classifyConfigLoadError(err))
		return nil, err
	}
	if cfg.SessionSweepInterval, err = getDuration("SESSION_SWEEP_INTERVAL", time.Hour); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "error", classifyConfigLoadError(err))
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = getDuration("OTEL_METRICS_EXPORT_INTERVAL", 30*time.Second); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "error", classifyConfigLoadError(err))
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "error", classifyConfigLoadError(err))
		return nil, err
	}
	if cfg.ShutdownHTTPDrainTimeout, err = getDuration("SHUTDOWN_HTTP_DRAIN_TIMEOUT", 5*time.Second); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "error", classifyConfigLoadError(err))
		return nil, err
	}
	if cfg.ShutdownObservabilityTimeout, err = getDuration("SHUTDOWN_OBSERVABILITY_TIMEOUT", 5*time.Second); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "error", classifyConfigLoadError(err))
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "error", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(ctx, cfg.Profile, "success", "none")
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("validate config: unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("validate config: DATABASE_URL is required")
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		return fmt.Errorf("validate config: REDIS_ADDR is required when REDIS_ENABLED=true")
	}
	if c.Profile == "prod" {
		if c.MasterEncryptionKey == "" {
			return fmt.Errorf("validate config: WALLET_ENCRYPTION_KEY is required in prod")
		}
		if c.AccessCodeHash == "" {
			return fmt.Errorf("validate config: ACCESS_CODE_HASH is required in prod")
		}
		if c.IdentitySecret == "" {
			return fmt.Errorf("validate config: IDENTITY_SECRET is required in prod")
		}
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("validate config: SESSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
