// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings provides the durable key-value store backing user
// preferences and chat session persistence.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/SAADAT-Abu/Lexi/internal/util"
)

// Slot keys used by the application. Callers outside this package should
// use these constants rather than raw strings.
const (
	KeyChatSessions     = "chat_sessions"
	KeyAPIKey           = "api_key"
	KeyUserName         = "user_name"
	KeyDefaultModel     = "default_model"
	KeyDefaultModelName = "default_model_name"
	KeyFirstRun         = "is_first_run"
)

// SettingsFileName is the name of the settings file under the app directory.
const SettingsFileName = "settings.json"

// =============================================================================
// STORE
// =============================================================================

// Store is a durable string-keyed settings store backed by a single JSON
// file. All mutations are serialized through a store-wide mutex and hit
// disk via an atomic write, so concurrent writers in this process cannot
// lose each other's updates and a crash never leaves a torn file.
//
// Sensitive slots (the API key) are encrypted at rest with AES-256-GCM;
// see Crypter.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]string

	crypter *Crypter

	// corrupt is set when the on-disk file existed but could not be
	// parsed. The store recovers with an empty value set; callers can
	// surface the condition instead of silently losing data twice.
	corrupt bool

	cbMu      sync.Mutex
	callbacks []func(key string)

	watcher *fileWatcher
}

// Open loads (or creates) the settings store at the given file path.
// A missing file is not an error; the store starts empty and the file is
// created on first write. A present but unparseable file yields an empty
// store with the corruption flag set.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		values: make(map[string]string),
	}

	crypter, err := NewCrypter(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize settings encryption: %w", err)
	}
	s.crypter = crypter

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenDefault opens the settings store in the default app directory.
func OpenDefault() (*Store, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(dir, SettingsFileName))
}

// DefaultDir returns the default application directory (~/.lexi).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".lexi"), nil
}

// Path returns the file path backing the store.
func (s *Store) Path() string {
	return s.path
}

// CorruptionDetected reports whether the on-disk file was unreadable at
// load time. The flag sticks until the next successful write.
func (s *Store) CorruptionDetected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corrupt
}

// load reads the settings file into memory. Must not be called with mu held.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		// RELIABILITY: A torn or corrupted file must not brick the app.
		// Quarantine the unreadable bytes before the next write replaces
		// the file, then recover with an empty store and record the
		// condition.
		backup := fmt.Sprintf("%s.corrupt-%d.bak", s.path, time.Now().Unix())
		_ = os.WriteFile(backup, data, 0600)

		s.mu.Lock()
		s.values = make(map[string]string)
		s.corrupt = true
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.values = values
	s.corrupt = false
	s.mu.Unlock()
	return nil
}

// persist writes the current value set to disk. Caller must hold mu.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash.
	// 0600/0700 because the file can carry credential material.
	if err := util.AtomicWriteFileWithDir(s.path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	s.corrupt = false
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Get returns the value for key, or the empty string if unset.
func (s *Store) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// Set stores value under key and persists the store.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	err := s.persist()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(key)
	return nil
}

// Delete removes key and persists the store. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	if _, ok := s.values[key]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.values, key)
	err := s.persist()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(key)
	return nil
}

// Update applies fn to the current value of key and persists the result,
// all under the store lock. This is the read-modify-write primitive used
// for the session blob: no other writer can interleave between the read
// and the write.
func (s *Store) Update(key string, fn func(current string) (string, error)) error {
	s.mu.Lock()
	next, err := fn(s.values[key])
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.values[key] = next
	err = s.persist()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(key)
	return nil
}

// =============================================================================
// SECRET SLOTS
// =============================================================================

// GetSecret returns the decrypted value of a sensitive slot. A value
// without the encryption marker is returned as-is, so stores written
// before encryption was introduced keep working.
func (s *Store) GetSecret(key string) (string, error) {
	return s.crypter.DecryptString(s.Get(key))
}

// SetSecret encrypts value and stores it under key.
func (s *Store) SetSecret(key, value string) error {
	if value == "" {
		return s.Set(key, "")
	}
	enc, err := s.crypter.EncryptString(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	return s.Set(key, enc)
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

// OnChange registers a callback fired after every persisted mutation and
// after external file changes are picked up by the watcher. The callback
// receives the changed key, or "" when the whole file was reloaded.
// Callbacks run on the mutating goroutine and must not call back into
// the store's write methods.
func (s *Store) OnChange(fn func(key string)) {
	s.cbMu.Lock()
	s.callbacks = append(s.callbacks, fn)
	s.cbMu.Unlock()
}

func (s *Store) notify(key string) {
	s.cbMu.Lock()
	cbs := make([]func(string), len(s.callbacks))
	copy(cbs, s.callbacks)
	s.cbMu.Unlock()

	for _, fn := range cbs {
		fn(key)
	}
}

// Watch starts watching the settings file for external modification.
// On change the file is reloaded and callbacks fire with an empty key.
// Uses fsnotify, falling back to polling when the platform watcher is
// unavailable. Close releases the watcher.
func (s *Store) Watch() error {
	if s.watcher != nil {
		return nil
	}
	w, err := newFileWatcher(s.path, func() {
		if err := s.load(); err == nil {
			s.notify("")
		}
	})
	if err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// Close stops the file watcher if one is running.
func (s *Store) Close() error {
	if s.watcher != nil {
		err := s.watcher.Close()
		s.watcher = nil
		return err
	}
	return nil
}
