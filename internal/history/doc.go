// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history presents the session directory: a live, ordered view
// of stored chat sessions for listing and deletion.
//
// A Directory is a stateless projection over storage.SessionStore. It
// caches nothing: Sessions always reads through to the store, and
// Updates re-emits the store's subscription feed, so a directory view
// can never show sessions that no longer exist. Mutations (Delete,
// Rename) are forwarded straight to the store and surface the store's
// errors unchanged, including storage.ErrSessionNotFound for unknown
// ids.
package history
