// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openrouter implements the client for the OpenRouter chat
// completions API.
//
// OpenRouter aggregates many LLM providers behind a single bearer-auth
// HTTP API. This package covers the two endpoints the app uses:
//
//   - POST /chat/completions: one full-history round trip per exchange
//   - GET /models: the model catalog, with free-tier filtering
//
// # Credentials
//
// The Client reads its key from an injected Credentials holder on every
// request. Rotating the key through the holder takes effect immediately;
// an empty holder fails fast with ErrNoCredentials before any I/O.
//
// # Failure handling
//
// The client performs exactly one attempt per call. Remote rejections are
// surfaced as *APIError (wrapped in sentinel errors for common statuses),
// transport failures are wrapped network errors, and a well-formed reply
// without choices is ErrEmptyCompletion. Nothing is retried.
package openrouter
