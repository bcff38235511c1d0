// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for lexi.
//
// Configuration lives in ~/.lexi/config.toml with sensible defaults and
// LEXI_* environment variable overrides. Secrets (the API key) are NOT
// part of this file; they live in the settings store, encrypted.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/SAADAT-Abu/Lexi/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete lexi configuration.
type Config struct {
	Version string `toml:"version"`

	// API configuration (OpenRouter)
	API APIConfig `toml:"api"`

	// Chat configuration
	Chat ChatConfig `toml:"chat"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// UI (terminal) configuration
	UI UIConfig `toml:"ui"`
}

// APIConfig contains OpenRouter endpoint configuration.
type APIConfig struct {
	// BaseURL is the OpenRouter API base URL
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds
	TimeoutSecs int `toml:"timeout_secs"`
	// SiteURL is sent in the HTTP-Referer attribution header
	SiteURL string `toml:"site_url"`
	// SiteName is sent in the X-Title attribution header
	SiteName string `toml:"site_name"`
}

// ChatConfig contains chat behavior configuration.
type ChatConfig struct {
	// DefaultModel is the model id used for new sessions
	DefaultModel string `toml:"default_model"`
	// DefaultModelName is the human-readable name shown for the model
	DefaultModelName string `toml:"default_model_name"`
	// SystemPrompt is prepended to every conversation when non-empty
	SystemPrompt string `toml:"system_prompt"`
}

// StorageConfig contains persistence configuration.
type StorageConfig struct {
	// DataDir is where settings, sessions and the search index live
	// (empty = ~/.lexi)
	DataDir string `toml:"data_dir"`
	// SearchIndex enables the SQLite full-text index over messages
	SearchIndex bool `toml:"search_index"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Color enables ANSI color output
	Color bool `toml:"color"`
	// Prompt is the REPL input prompt
	Prompt string `toml:"prompt"`
	// ShowTokens displays estimated token counts after each exchange
	ShowTokens bool `toml:"show_tokens"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			TimeoutSecs: 60,
			SiteURL:     "https://github.com/SAADAT-Abu/Lexi",
			SiteName:    "Lexi",
		},

		Chat: ChatConfig{
			DefaultModel:     "",
			DefaultModelName: "",
			SystemPrompt:     "",
		},

		Storage: StorageConfig{
			DataDir:     "",
			SearchIndex: true,
		},

		UI: UIConfig{
			Color:      true,
			Prompt:     "> ",
			ShowTokens: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the lexi configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".lexi"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions fixes overly permissive modes on the config
// file. The file holds no secrets, but it does control where data is
// written, so keep it owner-only.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file. A missing file
// is not an error: defaults are returned. Environment overrides are
// applied last, then the result is validated.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		fillDefaults(cfg)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	if cfg.API.TimeoutSecs == 0 {
		cfg.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if cfg.API.SiteURL == "" {
		cfg.API.SiteURL = defaults.API.SiteURL
	}
	if cfg.API.SiteName == "" {
		cfg.API.SiteName = defaults.API.SiteName
	}
	if cfg.UI.Prompt == "" {
		cfg.UI.Prompt = defaults.UI.Prompt
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath saves the configuration to a TOML file with 0600
// permissions.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# lexi configuration file")
	fmt.Fprintln(file, "# Generated by lexi - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LEXI_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	// LEXI_MODEL
	if model := os.Getenv("LEXI_MODEL"); model != "" {
		c.Chat.DefaultModel = model
	}

	// LEXI_BASE_URL
	if base := os.Getenv("LEXI_BASE_URL"); base != "" {
		c.API.BaseURL = base
	}

	// LEXI_DATA_DIR
	if dir := os.Getenv("LEXI_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}

	// LEXI_NO_COLOR / NO_COLOR
	if noColor := os.Getenv("LEXI_NO_COLOR"); noColor != "" {
		c.UI.Color = !(noColor == "1" || strings.ToLower(noColor) == "true")
	}
	if os.Getenv("NO_COLOR") != "" {
		c.UI.Color = false
	}

	// LEXI_SYSTEM_PROMPT
	if prompt := os.Getenv("LEXI_SYSTEM_PROMPT"); prompt != "" {
		c.Chat.SystemPrompt = prompt
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("api.base_url must use http or https")
	}

	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		return fmt.Errorf("api.timeout_secs must be 1-600, got %d", c.API.TimeoutSecs)
	}

	return nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation
// (e.g. "chat.default_model").
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "version":
		return c.Version, nil
	case "api.base_url":
		return c.API.BaseURL, nil
	case "api.timeout_secs":
		return fmt.Sprintf("%d", c.API.TimeoutSecs), nil
	case "api.site_url":
		return c.API.SiteURL, nil
	case "api.site_name":
		return c.API.SiteName, nil
	case "chat.default_model":
		return c.Chat.DefaultModel, nil
	case "chat.default_model_name":
		return c.Chat.DefaultModelName, nil
	case "chat.system_prompt":
		return c.Chat.SystemPrompt, nil
	case "storage.data_dir":
		return c.Storage.DataDir, nil
	case "storage.search_index":
		return fmt.Sprintf("%t", c.Storage.SearchIndex), nil
	case "ui.color":
		return fmt.Sprintf("%t", c.UI.Color), nil
	case "ui.prompt":
		return c.UI.Prompt, nil
	case "ui.show_tokens":
		return fmt.Sprintf("%t", c.UI.ShowTokens), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// Set updates a configuration value using dot notation. The change is
// not persisted; call Save afterwards.
func (c *Config) Set(key, value string) error {
	switch key {
	case "api.base_url":
		c.API.BaseURL = value
	case "api.timeout_secs":
		var secs int
		if _, err := fmt.Sscanf(value, "%d", &secs); err != nil {
			return fmt.Errorf("api.timeout_secs must be an integer: %q", value)
		}
		c.API.TimeoutSecs = secs
	case "api.site_url":
		c.API.SiteURL = value
	case "api.site_name":
		c.API.SiteName = value
	case "chat.default_model":
		c.Chat.DefaultModel = value
	case "chat.default_model_name":
		c.Chat.DefaultModelName = value
	case "chat.system_prompt":
		c.Chat.SystemPrompt = value
	case "storage.data_dir":
		c.Storage.DataDir = value
	case "storage.search_index":
		c.Storage.SearchIndex = util.ParseBool(value, false)
	case "ui.color":
		c.UI.Color = util.ParseBool(value, false)
	case "ui.prompt":
		c.UI.Prompt = value
	case "ui.show_tokens":
		c.UI.ShowTokens = util.ParseBool(value, false)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return c.Validate()
}

// Keys returns the settable configuration keys in display order.
func Keys() []string {
	return []string{
		"api.base_url",
		"api.timeout_secs",
		"api.site_url",
		"api.site_name",
		"chat.default_model",
		"chat.default_model_name",
		"chat.system_prompt",
		"storage.data_dir",
		"storage.search_index",
		"ui.color",
		"ui.prompt",
		"ui.show_tokens",
	}
}

// DataDir resolves the effective data directory: the configured
// storage.data_dir if set, otherwise ~/.lexi.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	return ConfigDir()
}
