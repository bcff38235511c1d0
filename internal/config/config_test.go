// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for lexi.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutSecs != 60 {
		t.Errorf("TimeoutSecs = %d, want 60", cfg.API.TimeoutSecs)
	}
	if cfg.API.SiteName != "Lexi" {
		t.Errorf("SiteName = %q", cfg.API.SiteName)
	}
	if !cfg.Storage.SearchIndex {
		t.Error("search index should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.API.BaseURL != Default().API.BaseURL {
		t.Errorf("missing file should yield defaults, got %q", cfg.API.BaseURL)
	}
}

func TestLoadFromPath_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[chat]
default_model = "meta-llama/llama-3-8b-instruct:free"
default_model_name = "Llama 3 8B"
`
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Chat.DefaultModel != "meta-llama/llama-3-8b-instruct:free" {
		t.Errorf("DefaultModel = %q", cfg.Chat.DefaultModel)
	}
	// Unset fields come from defaults
	if cfg.API.BaseURL != Default().API.BaseURL {
		t.Errorf("BaseURL should default, got %q", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutSecs != 60 {
		t.Errorf("TimeoutSecs should default, got %d", cfg.API.TimeoutSecs)
	}
}

func TestLoadFromPath_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("invalid TOML should be an error")
	}
}

func TestLoadFromPath_FixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Chat.DefaultModel = "openai/gpt-4o-mini"
	cfg.UI.Color = false

	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("SaveToPath failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Chat.DefaultModel != "openai/gpt-4o-mini" {
		t.Errorf("DefaultModel = %q", loaded.Chat.DefaultModel)
	}
	if loaded.UI.Color {
		t.Error("ui.color should round trip as false")
	}

	// Saved file starts with the header comment
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# lexi configuration file") {
		t.Error("saved file missing header comment")
	}

	info, _ := os.Stat(path)
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("saved permissions = %o, want 0600", perm)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LEXI_MODEL", "env/model")
	t.Setenv("LEXI_BASE_URL", "https://example.test/api/v1")
	t.Setenv("LEXI_NO_COLOR", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Chat.DefaultModel != "env/model" {
		t.Errorf("DefaultModel = %q", cfg.Chat.DefaultModel)
	}
	if cfg.API.BaseURL != "https://example.test/api/v1" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.UI.Color {
		t.Error("LEXI_NO_COLOR=1 should disable color")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://example.test" }, true},
		{"zero timeout", func(c *Config) { c.API.TimeoutSecs = 0 }, true},
		{"huge timeout", func(c *Config) { c.API.TimeoutSecs = 9999 }, true},
		{"http allowed", func(c *Config) { c.API.BaseURL = "http://localhost:8080" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("chat.default_model", "some/model"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := cfg.Get("chat.default_model")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "some/model" {
		t.Errorf("Get = %q", got)
	}

	if err := cfg.Set("ui.color", "false"); err != nil {
		t.Fatalf("Set bool failed: %v", err)
	}
	if cfg.UI.Color {
		t.Error("ui.color should be false")
	}

	if err := cfg.Set("api.timeout_secs", "not-a-number"); err == nil {
		t.Error("non-numeric timeout should fail")
	}
	if _, err := cfg.Get("no.such.key"); err == nil {
		t.Error("unknown key should fail")
	}
	if err := cfg.Set("no.such.key", "x"); err == nil {
		t.Error("unknown key should fail")
	}

	// Set validates: an invalid value is rejected
	if err := cfg.Set("api.base_url", "::bad::url"); err == nil {
		t.Error("invalid base URL should fail validation")
	}
}

func TestKeys_AllGettable(t *testing.T) {
	cfg := Default()
	for _, key := range Keys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) failed: %v", key, err)
		}
	}
}

func TestDataDir(t *testing.T) {
	cfg := Default()
	cfg.Storage.DataDir = "/tmp/custom-lexi"

	dir, err := cfg.DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if dir != "/tmp/custom-lexi" {
		t.Errorf("DataDir = %q", dir)
	}
}
