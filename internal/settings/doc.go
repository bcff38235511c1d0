// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings provides the durable key-value store backing user
// preferences and chat session persistence.
//
// The store is a single JSON object file (~/.lexi/settings.json) holding
// string slots. Known slots:
//
//   - chat_sessions: the serialized session collection (see internal/storage)
//   - api_key: the OpenRouter credential, encrypted at rest
//   - default_model, default_model_name: the default model binding
//   - user_name: display name collected during setup
//   - is_first_run: "false" once the setup wizard has completed
//
// # Durability
//
// Every mutation rewrites the whole file atomically (temp file, fsync,
// rename) under a store-wide mutex. Update provides locked
// read-modify-write for compound slots. A corrupt file is recovered as an
// empty store with CorruptionDetected reporting the event.
//
// # Reactivity
//
// OnChange callbacks fire after every persisted mutation. Watch adds
// fsnotify-based reload when another process rewrites the file.
package settings
