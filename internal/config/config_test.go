package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RestAddress != "http://localhost:1317" {
		t.Fatalf("unexpected rest_address %q", cfg.RestAddress)
	}
	if cfg.PollInterval != 0 {
		t.Fatalf("expected run-once default, got %v", cfg.PollInterval)
	}
	if cfg.StorageType != "none" {
		t.Fatalf("unexpected storage_type %q", cfg.StorageType)
	}
	if cfg.StorageTTL != 24*time.Hour {
		t.Fatalf("unexpected storage ttl %v", cfg.StorageTTL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REST_ADDRESS", " https://rest.fetch.ai ")
	t.Setenv("POLL_INTERVAL", "30")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RestAddress != "https://rest.fetch.ai" {
		t.Fatalf("unexpected rest_address %q", cfg.RestAddress)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("unexpected poll interval %v", cfg.PollInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel)
	}
}

func TestLoadRejectsNegativePollInterval(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POLL_INTERVAL", "-1")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative poll_interval")
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore Chdir: %v", err)
		}
	})
}
