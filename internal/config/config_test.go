package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Database.MaxOpen != 20 {
		t.Errorf("MaxOpen = %d", cfg.Database.MaxOpen)
	}
	if cfg.Enhancer.Timeout != 30*time.Second {
		t.Errorf("Enhancer.Timeout = %v", cfg.Enhancer.Timeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/jobcard")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_EMAILS", "boss@example.com, ops@example.com ,")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("ENHANCER_TIMEOUT", "5s")

	cfg := Load()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.Database.MaxOpen != 7 {
		t.Errorf("MaxOpen = %d", cfg.Database.MaxOpen)
	}
	if len(cfg.Auth.AdminEmails) != 2 {
		t.Errorf("AdminEmails = %v", cfg.Auth.AdminEmails)
	}
	if cfg.Enhancer.Timeout != 5*time.Second {
		t.Errorf("Enhancer.Timeout = %v", cfg.Enhancer.Timeout)
	}
}

func TestValidateRejectsMissingSecrets(t *testing.T) {
	cfg := Load()
	cfg.Database.DSN = "postgres://localhost/jobcard"
	cfg.Auth.JWTSecret = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted an empty JWT secret")
	}
}
