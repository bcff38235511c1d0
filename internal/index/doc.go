// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides full-text search over stored chat sessions.
//
// The index is a SQLite database with an FTS5 virtual table over
// message content. It is a derived view: the session store holds the
// authoritative data, and the index is rebuilt wholesale from store
// snapshots. Deleting the database file costs nothing but a rebuild.
//
// Feeding the index is pull-based. A caller subscribes to the session
// store and hands the subscription channel to Follow, which rebuilds on
// every snapshot with a rate limit so bursts of writes (each completed
// exchange rewrites its session) collapse into few rebuilds.
//
// Search queries are sanitized before reaching FTS5; user input can
// never inject match syntax.
package index
