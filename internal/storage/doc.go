// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable persistence for chat sessions.
//
// The whole session collection lives as one JSON blob in the settings
// store's chat_sessions slot. Mutations are locked read-modify-writes of
// the full collection, keeping concurrent writers from losing updates,
// and land on disk through the settings store's atomic file writes.
//
// # Guarantees
//
//   - ListSessions never fails; a corrupt blob decodes to an empty
//     collection with CorruptionDetected set
//   - Mutations on unknown IDs return ErrSessionNotFound
//   - Listings are ordered by UpdatedAt descending
//   - Subscribe delivers the current collection immediately, then a fresh
//     snapshot after every completed mutation, coalescing for slow readers
//
// Formatting and export helpers for the CLI live in format.go; indexed
// full-text search over sessions lives in internal/index.
package storage
