package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.WebhookTimeout != 30*time.Second {
		t.Fatalf("expected 30s webhook timeout, got %s", cfg.WebhookTimeout)
	}
	if cfg.DueSchedule != "0 9 * * *" {
		t.Fatalf("unexpected due schedule %q", cfg.DueSchedule)
	}
	if cfg.WorkerCount != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.WorkerCount)
	}
}

func TestLoadWebhookURLs(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("WEBHOOK_URLS", "http://a.example/hook, ,http://b.example/hook,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(cfg.WebhookURLs) != 2 {
		t.Fatalf("expected 2 urls, got %v", cfg.WebhookURLs)
	}
	if cfg.WebhookURLs[0] != "http://a.example/hook" || cfg.WebhookURLs[1] != "http://b.example/hook" {
		t.Fatalf("unexpected urls %v", cfg.WebhookURLs)
	}
}

func TestLoadDurationSeconds(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("WEBHOOK_TIMEOUT", "45")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WebhookTimeout != 45*time.Second {
		t.Fatalf("expected 45s, got %s", cfg.WebhookTimeout)
	}
}

func TestLoadRequiresDatabaseOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}
