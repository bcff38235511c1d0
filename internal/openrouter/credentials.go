// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openrouter implements the client for the OpenRouter chat
// completions API.
package openrouter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// Credentials holds the bearer credential for API calls. The holder is
// injected into the Client rather than read from process-wide state, so
// tests and multi-account setups can carry independent credentials.
//
// Set may be called at any time; in-flight requests keep the credential
// they were built with, subsequent requests observe the new one.
type Credentials struct {
	mu  sync.RWMutex
	key string
}

// NewCredentials creates a credential holder with the given API key.
// The key may be empty; requests through an empty holder fail with
// ErrNoCredentials before any network I/O.
func NewCredentials(apiKey string) *Credentials {
	return &Credentials{key: strings.TrimSpace(apiKey)}
}

// Set replaces the held credential.
func (c *Credentials) Set(apiKey string) {
	c.mu.Lock()
	c.key = strings.TrimSpace(apiKey)
	c.mu.Unlock()
}

// Get returns the held credential.
func (c *Credentials) Get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

// IsConfigured returns true if a credential is present.
func (c *Credentials) IsConfigured() bool {
	return c.Get() != ""
}

// Masked returns a display form of the credential that never exposes key
// fragments.
// SECURITY: Use the fingerprint instead of key prefixes in logs and UI.
func (c *Credentials) Masked() string {
	key := c.Get()
	if key == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(key), c.Fingerprint())
}

// Fingerprint returns a short SHA-256 fingerprint of the credential for
// correlation in logs.
func (c *Credentials) Fingerprint() string {
	key := c.Get()
	if key == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:4])
}

// ValidateAPIKey checks if the API key format appears valid.
// Note: This doesn't verify the key with OpenRouter, just checks the format.
// SECURITY: Enhanced validation with length and entropy checks.
func ValidateAPIKey(apiKey string) bool {
	apiKey = strings.TrimSpace(apiKey)

	// OpenRouter keys start with "sk-or-"
	if !strings.HasPrefix(apiKey, "sk-or-") {
		return false
	}

	// Minimum length check (sk-or- prefix + at least 32 chars)
	if len(apiKey) < 38 {
		return false
	}

	// Basic entropy check: key should contain alphanumeric variety.
	// Count unique characters to detect obvious test keys like "sk-or-aaaaaaaaaa".
	uniqueChars := make(map[rune]bool)
	for _, char := range apiKey[6:] {
		uniqueChars[char] = true
	}

	return len(uniqueChars) >= 10
}
