// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history presents the session directory: a live, ordered view
// of stored chat sessions for listing and deletion.
package history

import (
	"github.com/SAADAT-Abu/Lexi/internal/model"
	"github.com/SAADAT-Abu/Lexi/internal/storage"
)

// Directory is a thin view over the session store. It holds no cache of
// its own: every read goes to the store, so the view can never drift
// from what is on disk.
type Directory struct {
	store   *storage.SessionStore
	updates <-chan []model.ChatSession
	cancel  func()
}

// NewDirectory opens a live view over store. Close releases the
// underlying subscription.
func NewDirectory(store *storage.SessionStore) *Directory {
	updates, cancel := store.Subscribe()
	return &Directory{
		store:   store,
		updates: updates,
		cancel:  cancel,
	}
}

// Sessions returns the current session list, most recently updated
// first. Listing never fails; a corrupt store yields an empty list.
func (d *Directory) Sessions() []model.ChatSession {
	return d.store.ListSessions()
}

// Updates delivers a fresh session list after every store change. The
// channel carries the latest state only: intermediate lists may be
// skipped for slow consumers. It is closed by Close.
func (d *Directory) Updates() <-chan []model.ChatSession {
	return d.updates
}

// Get returns the session with the given id.
func (d *Directory) Get(id string) (model.ChatSession, error) {
	return d.store.GetSession(id)
}

// Delete removes the session with the given id. Deleting an unknown id
// returns storage.ErrSessionNotFound; the remaining sessions are
// untouched either way.
func (d *Directory) Delete(id string) error {
	return d.store.DeleteSession(id)
}

// Rename changes a session's title without bumping its position in the
// listing order.
func (d *Directory) Rename(id, title string) error {
	return d.store.RenameSession(id, title)
}

// Corrupt reports whether the underlying store has encountered
// undecodable data. The undecodable blob itself is preserved in a .bak
// sibling of the store file.
func (d *Directory) Corrupt() bool {
	return d.store.CorruptionDetected()
}

// Close releases the store subscription. The Updates channel is closed.
func (d *Directory) Close() {
	d.cancel()
}
