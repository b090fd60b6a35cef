package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribed/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Whisper.Model != "small" {
		t.Fatalf("expected default model small, got %q", cfg.Whisper.Model)
	}
	if cfg.Whisper.EngineSlots != 1 {
		t.Fatalf("expected one engine slot by default, got %d", cfg.Whisper.EngineSlots)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
staging_dir = "` + filepath.Join(dir, "staging") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
api_bind = "127.0.0.1:0"

[uploads]
allowed_extensions = [".MP3", "wav", ""]

[fetch]
allowed_domains = ["Example.COM"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to be used, got %s exists=%v", path, resolved, exists)
	}
	if got := cfg.Uploads.AllowedExtensions; len(got) != 2 || got[0] != "mp3" || got[1] != "wav" {
		t.Fatalf("unexpected normalized extensions: %v", got)
	}
	if got := cfg.Fetch.AllowedDomains; len(got) != 1 || got[0] != "example.com" {
		t.Fatalf("unexpected normalized domains: %v", got)
	}
	if cfg.Whisper.Binary != "whisper" {
		t.Fatalf("expected defaults to fill unset sections, got binary %q", cfg.Whisper.Binary)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to report exists=false")
	}
	if cfg.Paths.APIBind == "" {
		t.Fatal("expected defaults to apply")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantSub string
	}{
		{"no extensions", func(c *config.Config) { c.Uploads.AllowedExtensions = nil }, "allowed_extensions"},
		{"dotted extension", func(c *config.Config) { c.Uploads.AllowedExtensions = []string{"a.b"} }, "bare extension"},
		{"no domains", func(c *config.Config) { c.Fetch.AllowedDomains = nil }, "allowed_domains"},
		{"host with path", func(c *config.Config) { c.Fetch.AllowedDomains = []string{"example.com/x"} }, "bare host"},
		{"zero slots", func(c *config.Config) { c.Whisper.EngineSlots = 0 }, "engine_slots"},
		{"empty model", func(c *config.Config) { c.Whisper.Model = " " }, "whisper.model"},
		{"zero poll interval", func(c *config.Config) { c.Workflow.QueuePollInterval = 0 }, "queue_poll_interval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantSub, err)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[whisper]") {
		t.Fatal("sample config missing whisper section")
	}
}
