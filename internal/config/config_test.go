package config

import (
	"testing"
	"time"

	"github.com/clinicdesk-ai/clinicdesk/internal/openemr"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OPENEMR_BASE_URL", "")
	t.Setenv("OPENEMR_USERNAME", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.OpenEMRBaseURL != "http://openemr:80" {
		t.Fatalf("expected default base URL, got %s", cfg.OpenEMRBaseURL)
	}
	if cfg.OpenEMRUsername != "admin" {
		t.Fatalf("expected default username, got %s", cfg.OpenEMRUsername)
	}
	if cfg.OpenEMRTimeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.OpenEMRTimeout)
	}
	if cfg.OpenEMRScopes != openemr.DefaultScopes {
		t.Fatalf("expected default scopes, got %s", cfg.OpenEMRScopes)
	}
	if cfg.RateLimitBurst != 10 {
		t.Fatalf("expected default rate limit burst, got %d", cfg.RateLimitBurst)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPENEMR_BASE_URL", "https://emr.example.org/")
	t.Setenv("OPENEMR_CLIENT_ID", "client-abc")
	t.Setenv("OPENEMR_TIMEOUT", "10s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port override, got %s", cfg.Port)
	}
	if cfg.OpenEMRBaseURL != "https://emr.example.org" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.OpenEMRBaseURL)
	}
	if cfg.OpenEMRClientID != "client-abc" {
		t.Fatalf("expected client id override, got %s", cfg.OpenEMRClientID)
	}
	if cfg.OpenEMRTimeout != 10*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.OpenEMRTimeout)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate override, got %f", cfg.RateLimitRPS)
	}
	if cfg.DatabaseURL == "" {
		t.Fatal("expected database url override")
	}
}

func TestInvalidNumericFallsBack(t *testing.T) {
	t.Setenv("OPENEMR_TIMEOUT", "not-a-duration")
	t.Setenv("RATE_LIMIT_BURST", "lots")
	cfg := Load()
	if cfg.OpenEMRTimeout != 30*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.OpenEMRTimeout)
	}
	if cfg.RateLimitBurst != 10 {
		t.Fatalf("expected fallback burst, got %d", cfg.RateLimitBurst)
	}
}
