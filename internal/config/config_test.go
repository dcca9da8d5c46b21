package config

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestLoadDevProfileDefaults(t *testing.T) {
	t.Setenv("PORTAL_PROFILE", "dev")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":4000" {
		t.Fatalf("HTTPAddr = %q, want :4000", cfg.HTTPAddr)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("AccessTokenTTL = %v, want 15m", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("RefreshTokenTTL = %v, want 168h", cfg.RefreshTokenTTL)
	}
	if cfg.BacklogSize != 100 {
		t.Fatalf("BacklogSize = %d, want 100", cfg.BacklogSize)
	}
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		t.Fatal("dev profile should fill in development secrets")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		t.Fatal("dev secrets must differ")
	}
}

func TestLoadProductionRequiresSecrets(t *testing.T) {
	t.Setenv("PORTAL_PROFILE", "production")

	_, err := Load(context.Background())
	if err == nil {
		t.Fatal("production profile without secrets must fail")
	}
	if !strings.Contains(err.Error(), "PORTAL_ACCESS_TOKEN_SECRET") {
		t.Fatalf("error %q does not name the missing secret", err)
	}
}

func TestLoadRejectsIdenticalSecrets(t *testing.T) {
	t.Setenv("PORTAL_PROFILE", "production")
	secret := strings.Repeat("x", 32)
	t.Setenv("PORTAL_ACCESS_TOKEN_SECRET", secret)
	t.Setenv("PORTAL_REFRESH_TOKEN_SECRET", secret)

	_, err := Load(context.Background())
	if err == nil {
		t.Fatal("identical access and refresh secrets must fail validation")
	}
	if !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsInvertedTTLs(t *testing.T) {
	t.Setenv("PORTAL_PROFILE", "dev")
	t.Setenv("PORTAL_ACCESS_TOKEN_TTL", "48h")
	t.Setenv("PORTAL_REFRESH_TOKEN_TTL", "1h")

	_, err := Load(context.Background())
	if err == nil {
		t.Fatal("access TTL longer than refresh TTL must fail validation")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORTAL_PROFILE", "dev")
	t.Setenv("PORTAL_HTTP_ADDR", ":9090")
	t.Setenv("PORTAL_FEED_BACKLOG_SIZE", "250")
	t.Setenv("PORTAL_RATE_LIMIT_MAX", "42")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.BacklogSize != 250 {
		t.Fatalf("BacklogSize = %d", cfg.BacklogSize)
	}
	if cfg.RateLimitMaxRequests != 42 {
		t.Fatalf("RateLimitMaxRequests = %d", cfg.RateLimitMaxRequests)
	}
}

func TestEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("PORTAL_REDIS_DB", "not-a-number")
	t.Setenv("PORTAL_ACCESS_TOKEN_TTL", "soon")
	t.Setenv("PORTAL_OTEL_ENABLED", "maybe")

	if got := envInt("PORTAL_REDIS_DB", 3); got != 3 {
		t.Fatalf("envInt garbage = %d, want fallback 3", got)
	}
	if got := envDuration("PORTAL_ACCESS_TOKEN_TTL", time.Minute); got != time.Minute {
		t.Fatalf("envDuration garbage = %v, want fallback 1m", got)
	}
	if got := envBool("PORTAL_OTEL_ENABLED", true); got != true {
		t.Fatalf("envBool garbage = %v, want fallback true", got)
	}
}
