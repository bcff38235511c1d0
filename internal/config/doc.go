// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for lexi.
//
// The configuration file is TOML at ~/.lexi/config.toml. Loading order:
//
//  1. Built-in defaults
//  2. Values from the config file, if present
//  3. LEXI_* environment variable overrides
//
// The loaded result is validated before use; an unreadable or invalid
// file is an error, a missing file is not.
//
// Secrets never live here. The OpenRouter API key is stored in the
// settings store where it is encrypted at rest; config.toml only holds
// endpoints, model defaults and UI preferences.
package config
