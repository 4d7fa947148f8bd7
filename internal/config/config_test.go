//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("should apply defaults for absent fields", func(t *testing.T) {
		path := writeConfig(t, "redis:\n  url: localhost:6379\nweb:\n  admin_key: k\n")

		cfg, err := LoadConfig(path, false)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Web.Port != 8788 {
			t.Errorf("expected default port, got %d", cfg.Web.Port)
		}
		if cfg.Queue.TickInterval != 3*time.Second || cfg.Queue.PollWorkers != 8 {
			t.Errorf("unexpected queue defaults %+v", cfg.Queue)
		}
		if cfg.Download.Dir != "downloads" || cfg.Log.Level != "info" {
			t.Errorf("unexpected defaults %+v", cfg)
		}
		if cfg.Web.JWTSecret != "k" {
			t.Error("expected the jwt secret to fall back to the admin key")
		}
	})

	t.Run("should honor explicit values", func(t *testing.T) {
		path := writeConfig(t, `
log:
  level: debug
web:
  port: 9000
  admin_key: k
  jwt_secret: s
redis:
  url: localhost:6379
queue:
  tick_interval: 10s
  poll_workers: 2
`)

		cfg, err := LoadConfig(path, true)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Web.Port != 9000 || cfg.Web.JWTSecret != "s" {
			t.Errorf("unexpected web config %+v", cfg.Web)
		}
		if cfg.Queue.TickInterval != 10*time.Second || cfg.Queue.PollWorkers != 2 {
			t.Errorf("unexpected queue config %+v", cfg.Queue)
		}
		if !cfg.Runtime.Dev {
			t.Error("expected dev mode on")
		}
	})

	t.Run("should require the redis url", func(t *testing.T) {
		path := writeConfig(t, "web:\n  admin_key: k\n")

		if _, err := LoadConfig(path, false); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("should require the admin key", func(t *testing.T) {
		path := writeConfig(t, "redis:\n  url: localhost:6379\n")

		if _, err := LoadConfig(path, false); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false); err == nil {
			t.Fatal("expected an error")
		}
	})
}
