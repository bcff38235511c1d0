// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the send/receive state machine for a single
// chat exchange.
//
// The Controller owns the in-memory message list of the active
// conversation and moves between two states:
//
//	idle -> sending -> idle
//
// A send appends the user's message optimistically, ships the full
// history to the completion client, and either appends the reply or
// records the failure. Every send performs exactly one idle transition;
// concurrent sends are rejected rather than queued.
//
// The controller is deliberately free of persistence: callers observe
// state through OnChange snapshots and mirror them into
// storage.SessionStore.
package chat
