package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("POLL_INTERVAL_SECONDS", "")
	t.Setenv("POLL_DEADLINE_SECONDS", "")
	t.Setenv("PAYLOAD_CEILING_BYTES", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.PollInterval != 60*time.Second {
		t.Fatalf("PollInterval mismatch: got %v want %v", cfg.PollInterval, 60*time.Second)
	}
	if cfg.PollDeadline != 5*time.Minute {
		t.Fatalf("PollDeadline mismatch: got %v want %v", cfg.PollDeadline, 5*time.Minute)
	}
	if cfg.PayloadCeiling != 10*1024*1024 {
		t.Fatalf("PayloadCeiling mismatch: got %d want %d", cfg.PayloadCeiling, 10*1024*1024)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig should fail without DATABASE_URL")
	}
}

func TestLoadConfigHonorsExplicitPolling(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("POLL_INTERVAL_SECONDS", "5")
	t.Setenv("POLL_DEADLINE_SECONDS", "45")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval mismatch: got %v want %v", cfg.PollInterval, 5*time.Second)
	}
	if cfg.PollDeadline != 45*time.Second {
		t.Fatalf("PollDeadline mismatch: got %v want %v", cfg.PollDeadline, 45*time.Second)
	}
}

func TestLoadConfigRejectsNonPositiveInterval(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("POLL_INTERVAL_SECONDS", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig should reject a zero poll interval")
	}
}

func TestLoadConfigRejectsNonPositiveCeiling(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PAYLOAD_CEILING_BYTES", "-1")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig should reject a negative payload ceiling")
	}
}
