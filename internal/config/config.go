package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	Profile  string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	BacklogSize int

	RateLimitWindow      time.Duration
	RateLimitMaxRequests int

	ArtifactPath    string
	VersionFilePath string

	OTELEnabled               bool
	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
}

// Load reads configuration from the environment and validates it. Secrets
// have no defaults outside the dev profile: a production deployment that
// forgets them must fail at startup, not issue forgeable tokens.
func Load(ctx context.Context) (*Config, error) {
	profile := envString("PORTAL_PROFILE", "dev")
	cfg := &Config{
		HTTPAddr:                  envString("PORTAL_HTTP_ADDR", ":4000"),
		Profile:                   profile,
		DatabaseURL:               envString("PORTAL_DATABASE_URL", ""),
		RedisAddr:                 envString("PORTAL_REDIS_ADDR", "localhost:6379"),
		RedisPassword:             envString("PORTAL_REDIS_PASSWORD", ""),
		RedisDB:                   envInt("PORTAL_REDIS_DB", 0),
		AccessTokenSecret:         envString("PORTAL_ACCESS_TOKEN_SECRET", ""),
		RefreshTokenSecret:        envString("PORTAL_REFRESH_TOKEN_SECRET", ""),
		AccessTokenTTL:            envDuration("PORTAL_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:           envDuration("PORTAL_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BacklogSize:               envInt("PORTAL_FEED_BACKLOG_SIZE", 100),
		RateLimitWindow:           envDuration("PORTAL_RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMaxRequests:      envInt("PORTAL_RATE_LIMIT_MAX", 300),
		ArtifactPath:              envString("PORTAL_ARTIFACT_PATH", "shared/site-analyzer-main.zip"),
		VersionFilePath:           envString("PORTAL_VERSION_FILE", "shared/version.txt"),
		OTELEnabled:               envBool("PORTAL_OTEL_ENABLED", false),
		OTELServiceName:           envString("PORTAL_OTEL_SERVICE_NAME", "site-analyzer-portal"),
		OTELEnvironment:           envString("PORTAL_OTEL_ENVIRONMENT", profile),
		OTELExporterOTLPEndpoint:  envString("PORTAL_OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  envBool("PORTAL_OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsExportInterval: envDuration("PORTAL_OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second),
	}

	if profile == "dev" {
		if cfg.AccessTokenSecret == "" {
			cfg.AccessTokenSecret = "dev-access-secret-change-me-32bytes!"
		}
		if cfg.RefreshTokenSecret == "" {
			cfg.RefreshTokenSecret = "dev-refresh-secret-change-me-32byte!"
		}
	}

	if err := cfg.validate(); err != nil {
		recordConfigValidationEvent(ctx, profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(ctx, profile, "success", "none")
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string
	if len(c.AccessTokenSecret) < 32 {
		problems = append(problems, "PORTAL_ACCESS_TOKEN_SECRET must be at least 32 bytes")
	}
	if len(c.RefreshTokenSecret) < 32 {
		problems = append(problems, "PORTAL_REFRESH_TOKEN_SECRET must be at least 32 bytes")
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		problems = append(problems, "access and refresh token secrets must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		problems = append(problems, "token TTLs must be positive")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		problems = append(problems, "access token TTL must be shorter than refresh token TTL")
	}
	if c.BacklogSize <= 0 {
		problems = append(problems, "PORTAL_FEED_BACKLOG_SIZE must be positive")
	}
	if c.RateLimitWindow <= 0 || c.RateLimitMaxRequests <= 0 {
		problems = append(problems, "rate limit window and max must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("validate config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
