// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable persistence for chat sessions.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/SAADAT-Abu/Lexi/internal/model"
	"github.com/SAADAT-Abu/Lexi/internal/settings"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned when a session ID doesn't exist.
// Use errors.Is(err, ErrSessionNotFound) to check for this error.
var ErrSessionNotFound = &SessionError{Message: "session not found"}

// SessionError represents a session-related error.
// It implements the error interface and can be compared using errors.Is.
type SessionError struct {
	Message string
	ID      string
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.ID != "" {
		return e.Message + ": " + e.ID
	}
	return e.Message
}

// Is implements errors.Is support for comparing session errors.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

func notFound(id string) error {
	return &SessionError{Message: ErrSessionNotFound.Message, ID: id}
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore persists the chat session collection as a single JSON blob
// in the settings store's chat_sessions slot.
//
// Every mutation is a locked read-modify-write of the whole collection
// through settings.Update, so concurrent writers in this process are
// serialized and cannot lose each other's changes. Reads never fail:
// a corrupt or missing blob yields an empty collection, with the
// corruption recorded for callers that want to surface it.
type SessionStore struct {
	settings *settings.Store

	mu      sync.RWMutex
	corrupt bool

	subMu   sync.Mutex
	subs    map[int]chan []model.ChatSession
	nextSub int
}

// NewSessionStore creates a store over the given settings store and hooks
// into its change notifications, so external rewrites of the settings
// file (picked up by the settings watcher) also reach subscribers.
func NewSessionStore(st *settings.Store) *SessionStore {
	s := &SessionStore{
		settings: st,
		subs:     make(map[int]chan []model.ChatSession),
	}
	st.OnChange(func(key string) {
		if key == settings.KeyChatSessions || key == "" {
			s.broadcast()
		}
	})
	return s
}

// decode parses a sessions blob. The ok result is false when the blob was
// present but unparseable.
func decode(blob string) (sessions []model.ChatSession, ok bool) {
	if blob == "" {
		return []model.ChatSession{}, true
	}
	if err := json.Unmarshal([]byte(blob), &sessions); err != nil {
		return []model.ChatSession{}, false
	}
	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	return sessions, true
}

func encode(sessions []model.ChatSession) (string, error) {
	data, err := json.Marshal(sessions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// current returns the decoded collection and records corruption.
func (s *SessionStore) current() []model.ChatSession {
	blob := s.settings.Get(settings.KeyChatSessions)
	sessions, ok := decode(blob)
	if !ok {
		s.quarantine(blob)
	}
	return sessions
}

// quarantine records corruption and preserves the unparseable blob in a
// timestamped .bak sibling of the settings file, before any subsequent
// write can destroy the only copy. The backup is written once per
// detection.
func (s *SessionStore) quarantine(blob string) {
	s.mu.Lock()
	already := s.corrupt
	s.corrupt = true
	s.mu.Unlock()

	if already || blob == "" {
		return
	}
	// Best effort: the read must still succeed with an empty collection
	// even when the backup cannot be written.
	backup := fmt.Sprintf("%s.sessions-%d.bak", s.settings.Path(), time.Now().Unix())
	_ = os.WriteFile(backup, []byte(blob), 0600)
}

// CorruptionDetected reports whether an unparseable sessions blob has been
// encountered. Reads recover with an empty collection either way; the
// flag lets the UI tell the user history was lost rather than staying
// silent. It stays set for the life of the process: later writes start a
// fresh collection but do not un-lose the old one.
func (s *SessionStore) CorruptionDetected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corrupt
}

// =============================================================================
// READS
// =============================================================================

// ListSessions returns all sessions sorted by UpdatedAt descending
// (most recently touched first). It never fails: corrupt state yields
// an empty slice.
func (s *SessionStore) ListSessions() []model.ChatSession {
	sessions := s.current()
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions
}

// GetSession returns the session with the given ID.
func (s *SessionStore) GetSession(id string) (model.ChatSession, error) {
	for _, sess := range s.current() {
		if sess.ID == id {
			return sess.Clone(), nil
		}
	}
	return model.ChatSession{}, notFound(id)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// mutate runs fn over the decoded collection and persists the result,
// all inside the settings store's locked read-modify-write. fn returns
// the new collection or an error to abort without writing.
func (s *SessionStore) mutate(fn func(sessions []model.ChatSession) ([]model.ChatSession, error)) error {
	return s.settings.Update(settings.KeyChatSessions, func(blob string) (string, error) {
		sessions, ok := decode(blob)
		if !ok {
			// The old blob is unrecoverable; quarantine it and start
			// over rather than refusing every future write.
			s.quarantine(blob)
		}
		next, err := fn(sessions)
		if err != nil {
			return "", err
		}
		return encode(next)
	})
}

// CreateSession creates a new session with the given title and model
// binding, optionally seeded with initial messages, and inserts it at
// the front of the collection.
func (s *SessionStore) CreateSession(title, modelID, modelName string, initial ...model.Message) (model.ChatSession, error) {
	sess := model.NewChatSession(title, modelID, modelName)
	for _, msg := range initial {
		sess.AddMessage(msg)
	}

	err := s.mutate(func(sessions []model.ChatSession) ([]model.ChatSession, error) {
		return append([]model.ChatSession{sess}, sessions...), nil
	})
	if err != nil {
		return model.ChatSession{}, err
	}
	return sess, nil
}

// UpdateSession replaces the message list of the identified session,
// refreshes its UpdatedAt, and moves it to the front of the collection.
// Returns ErrSessionNotFound for unknown IDs.
func (s *SessionStore) UpdateSession(id string, messages []model.Message) error {
	return s.mutate(func(sessions []model.ChatSession) ([]model.ChatSession, error) {
		for i := range sessions {
			if sessions[i].ID != id {
				continue
			}
			sess := sessions[i]
			sess.SetMessages(messages)

			next := append([]model.ChatSession{sess}, sessions[:i]...)
			next = append(next, sessions[i+1:]...)
			return next, nil
		}
		return nil, notFound(id)
	})
}

// RenameSession sets a new title on the identified session without
// touching its messages or position.
func (s *SessionStore) RenameSession(id, title string) error {
	return s.mutate(func(sessions []model.ChatSession) ([]model.ChatSession, error) {
		for i := range sessions {
			if sessions[i].ID == id {
				sessions[i].Title = title
				sessions[i].Touch()
				return sessions, nil
			}
		}
		return nil, notFound(id)
	})
}

// DeleteSession removes the identified session from the collection.
// Returns ErrSessionNotFound for unknown IDs.
func (s *SessionStore) DeleteSession(id string) error {
	return s.mutate(func(sessions []model.ChatSession) ([]model.ChatSession, error) {
		for i := range sessions {
			if sessions[i].ID == id {
				return append(sessions[:i], sessions[i+1:]...), nil
			}
		}
		return nil, notFound(id)
	})
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe returns a channel carrying the session collection: the
// current state immediately, then a fresh snapshot after every completed
// mutation. Slow consumers only ever see the latest snapshot; stale
// intermediate states are coalesced away. The returned cancel function
// releases the subscription and closes the channel.
func (s *SessionStore) Subscribe() (<-chan []model.ChatSession, func()) {
	ch := make(chan []model.ChatSession, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	ch <- s.ListSessions()

	cancel := func() {
		s.subMu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

// broadcast pushes the current listing to every subscriber, replacing an
// undelivered older snapshot if one is still queued.
func (s *SessionStore) broadcast() {
	sessions := s.ListSessions()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- sessions:
		default:
			// Drop the stale snapshot, then queue the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- sessions:
			default:
			}
		}
	}
}

// =============================================================================
// SEARCH (MESSAGE CONTENT)
// =============================================================================

// SearchMessages returns sessions where any message contains the query
// string (case-insensitive). An empty query returns the full listing.
// For indexed full-text search see internal/index.
func (s *SessionStore) SearchMessages(query string) []model.ChatSession {
	if query == "" {
		return s.ListSessions()
	}

	var results []model.ChatSession
	for _, sess := range s.ListSessions() {
		if sessionMatches(sess, query) {
			results = append(results, sess)
		}
	}
	return results
}
