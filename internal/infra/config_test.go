package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JOB_MAX_ATTEMPTS", "")
	t.Setenv("BACKOFF_BASE", "")
	t.Setenv("BACKOFF_MAX", "")
	t.Setenv("UPLOAD_TIMEOUT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "http://localhost:8080/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
	if cfg.JobMaxAttempts != 3 {
		t.Fatalf("JobMaxAttempts = %d, want 3", cfg.JobMaxAttempts)
	}
	if cfg.BackoffBase != 5*time.Second || cfg.BackoffMax != 5*time.Minute {
		t.Fatalf("backoff mismatch: base=%s max=%s", cfg.BackoffBase, cfg.BackoffMax)
	}
	if cfg.QueueDurable() {
		t.Fatalf("expected inline queue mode without REDIS_URL")
	}
	if cfg.UploadTimeout != 60*time.Second {
		t.Fatalf("UploadTimeout = %s, want 60s", cfg.UploadTimeout)
	}
	if cfg.QueueKey != "image-jobs:queue" {
		t.Fatalf("QueueKey = %q", cfg.QueueKey)
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigDurations(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("BACKOFF_BASE", "2s")
	t.Setenv("BACKOFF_MAX", "45")
	t.Setenv("GENERATION_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.BackoffBase != 2*time.Second {
		t.Fatalf("BackoffBase = %s, want 2s", cfg.BackoffBase)
	}
	if cfg.BackoffMax != 45*time.Second {
		t.Fatalf("BackoffMax = %s, want 45s", cfg.BackoffMax)
	}
	if cfg.GenerationTimeout != 90*time.Second {
		t.Fatalf("GenerationTimeout = %s, want fallback 90s", cfg.GenerationTimeout)
	}
	if !cfg.QueueDurable() {
		t.Fatalf("expected durable queue mode with REDIS_URL")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing database", env: map[string]string{"DATABASE_URL": ""}},
		{name: "zero attempts", env: map[string]string{"DATABASE_URL": "postgres://x", "JOB_MAX_ATTEMPTS": "0"}},
		{name: "max below base", env: map[string]string{"DATABASE_URL": "postgres://x", "BACKOFF_BASE": "10s", "BACKOFF_MAX": "1s"}},
		{name: "lease shorter than one attempt", env: map[string]string{"DATABASE_URL": "postgres://x", "GENERATION_TIMEOUT": "90s", "UPLOAD_TIMEOUT": "60s", "JOB_LEASE_TIMEOUT": "2m"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JOB_MAX_ATTEMPTS", "")
			t.Setenv("BACKOFF_BASE", "")
			t.Setenv("BACKOFF_MAX", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
