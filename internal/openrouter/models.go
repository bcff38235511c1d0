// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openrouter implements the client for the OpenRouter chat
// completions API.
package openrouter

// Pricing holds a model's per-token costs. OpenRouter reports prices as
// decimal strings; free models report the exact string "0".
type Pricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// TopProvider describes the primary provider serving a model.
type TopProvider struct {
	Name string `json:"name"`
}

// Model describes an available model in the OpenRouter catalog.
type Model struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	ContextLength int         `json:"context_length"`
	Pricing       Pricing     `json:"pricing"`
	TopProvider   TopProvider `json:"top_provider"`
}

// IsFree reports whether the model costs nothing for both prompt and
// completion tokens. Only the literal string "0" counts; "0.0000001"
// and absent pricing do not.
func (m Model) IsFree() bool {
	return m.Pricing.Prompt == "0" && m.Pricing.Completion == "0"
}

// DisplayName returns the catalog name, falling back to the ID.
func (m Model) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// modelsResponse is the wire shape of GET /models.
type modelsResponse struct {
	Data []Model `json:"data"`
}
