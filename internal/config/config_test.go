package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "127.0.0.1"
  publicBaseURL: "https://captions.example.com"

transcriber:
  model: "small"
  timeout: "30m"

pipeline:
  maxConcurrentJobs: 3

store:
  backend: "redis"

redis:
  host: "cache"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.PublicBaseURL != "https://captions.example.com" {
		t.Errorf("Expected public base URL override, got %s", cfg.Server.PublicBaseURL)
	}
	if cfg.Transcriber.Model != "small" {
		t.Errorf("Expected model small, got %s", cfg.Transcriber.Model)
	}
	if cfg.Transcriber.Timeout != 30*time.Minute {
		t.Errorf("Expected transcriber timeout 30m, got %v", cfg.Transcriber.Timeout)
	}
	if cfg.Pipeline.MaxConcurrentJobs != 3 {
		t.Errorf("Expected max concurrent jobs 3, got %d", cfg.Pipeline.MaxConcurrentJobs)
	}
	if cfg.Store.Backend != "redis" || cfg.Redis.Host != "cache" {
		t.Errorf("Expected redis store at cache, got %s at %s", cfg.Store.Backend, cfg.Redis.Host)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 8000\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Transcriber.Command != "python3" || cfg.Transcriber.Model != "medium" {
		t.Errorf("Unexpected transcriber defaults: %+v", cfg.Transcriber)
	}
	if cfg.Renderer.Command != "npx" || cfg.Renderer.Composition != "CaptionedVideo" || cfg.Renderer.Concurrency != 1 {
		t.Errorf("Unexpected renderer defaults: %+v", cfg.Renderer)
	}
	if cfg.Transcriber.Timeout != 0 || cfg.Renderer.Timeout != 0 {
		t.Error("Expected no tool timeouts by default")
	}
	if cfg.Pipeline.MaxConcurrentJobs != 0 {
		t.Errorf("Expected unbounded pipeline by default, got %d", cfg.Pipeline.MaxConcurrentJobs)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Expected memory store by default, got %s", cfg.Store.Backend)
	}
	if cfg.Storage.Enabled || cfg.Events.Enabled || cfg.Tracing.Enabled {
		t.Error("Expected optional integrations to be disabled by default")
	}
	if len(cfg.Webhook.URLs) != 0 || cfg.Webhook.MaxRetries != 3 {
		t.Errorf("Unexpected webhook defaults: %+v", cfg.Webhook)
	}
}

func TestLoadWebhooks(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
webhook:
  urls:
    - "http://hooks.local/a"
    - "http://hooks.local/b"
  secret: "s3cret"
  retryDelay: "250ms"
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if len(cfg.Webhook.URLs) != 2 || cfg.Webhook.URLs[1] != "http://hooks.local/b" {
		t.Errorf("Unexpected webhook urls: %v", cfg.Webhook.URLs)
	}
	if cfg.Webhook.Secret != "s3cret" {
		t.Errorf("Expected secret to be loaded")
	}
	if cfg.Webhook.RetryDelay != 250*time.Millisecond {
		t.Errorf("Expected retry delay 250ms, got %v", cfg.Webhook.RetryDelay)
	}
}

func TestLoadInvalidBackend(t *testing.T) {
	_, err := Load(writeConfig(t, "store:\n  backend: \"postgres\"\n"))
	if err == nil {
		t.Error("Expected error for unknown store backend")
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8000 {
		t.Errorf("Expected default port 8000, got %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.MaxConcurrentJobs = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for negative concurrency")
	}

	cfg = Default()
	cfg.Renderer.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero renderer concurrency")
	}

	cfg = Default()
	if cfg.Renderer.FPS != 30 {
		t.Errorf("Expected 30 fps by default, got %v", cfg.Renderer.FPS)
	}
	cfg.Renderer.FPS = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero renderer fps")
	}
}
