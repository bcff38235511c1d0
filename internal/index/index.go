// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides full-text search over stored chat sessions.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/SAADAT-Abu/Lexi/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("index closed")
	ErrDatabaseError = errors.New("database error")
)

// DatabaseFileName is the index file created inside the data directory.
const DatabaseFileName = "search.db"

// =============================================================================
// MESSAGE INDEX
// =============================================================================

// MessageIndex mirrors the session store into a SQLite FTS5 database so
// message content can be searched with real ranking instead of substring
// scans. The store remains the source of truth: the index is rebuilt
// from full session snapshots and can always be thrown away.
type MessageIndex struct {
	db *sql.DB
	mu sync.RWMutex

	// Rebuild throttle. Session mutations can arrive in bursts (every
	// completed exchange rewrites the session blob); the limiter spaces
	// full rebuilds out without dropping the final state.
	limiter *rate.Limiter

	closed       bool
	lastRebuild  time.Time
	sessionCount int
	messageCount int
}

// Open creates or opens the search index at path. The parent directory
// is created if needed.
func Open(path string) (*MessageIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	idx := &MessageIndex{
		db:      db,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}

	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	idx.loadStats()

	return idx, nil
}

// OpenMemory opens an in-memory index. Used by tests and one-shot
// searches that do not need persistence.
func OpenMemory() (*MessageIndex, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	idx := &MessageIndex{
		db:      db,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return idx, nil
}

func (idx *MessageIndex) initSchema() error {
	if _, err := idx.db.Exec(Schema); err != nil {
		return err
	}
	_, err := idx.db.Exec(InitMetadata)
	return err
}

// Close closes the index and releases resources.
func (idx *MessageIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true

	if idx.db != nil {
		return idx.db.Close()
	}
	return nil
}

// =============================================================================
// REBUILD
// =============================================================================

// Rebuild replaces the entire index with the given session snapshot.
// The snapshot is small (a chat history, not a corpus), so a full
// rebuild inside one transaction is simpler and safer than diffing.
func (idx *MessageIndex) Rebuild(ctx context.Context, sessions []model.ChatSession) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	var messageCount int
	for _, sess := range sessions {
		_, err := tx.Exec(`
			INSERT INTO sessions (id, title, model_id, model_name, created_at, updated_at, message_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, sess.ID, sess.GetTitle(), sess.ModelID, sess.ModelName,
			sess.CreatedAt.Unix(), sess.UpdatedAt.Unix(), sess.MessageCount())
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		for seq, msg := range sess.Messages {
			_, err := tx.Exec(`
				INSERT INTO messages (session_id, seq, role, content)
				VALUES (?, ?, ?, ?)
			`, sess.ID, seq, msg.Role.String(), msg.Content)
			if err != nil {
				return fmt.Errorf("failed to insert message: %w", err)
			}
			messageCount++
		}
	}

	now := time.Now()
	if _, err := tx.Exec("UPDATE metadata SET value = ? WHERE key = 'last_rebuild'", now.Unix()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}

	idx.lastRebuild = now
	idx.sessionCount = len(sessions)
	idx.messageCount = messageCount

	return nil
}

// Follow consumes session snapshots from updates and rebuilds the index
// for each, throttled by the rebuild limiter. The updates channel
// already coalesces to the latest state, so throttling never loses the
// final snapshot. Follow returns when ctx is cancelled or updates is
// closed.
func (idx *MessageIndex) Follow(ctx context.Context, updates <-chan []model.ChatSession) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sessions, ok := <-updates:
			if !ok {
				return nil
			}
			if err := idx.limiter.Wait(ctx); err != nil {
				return err
			}
			if err := idx.Rebuild(ctx, sessions); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}
				// Transient database errors: the next snapshot will
				// retry a full rebuild anyway.
				continue
			}
		}
	}
}

func (idx *MessageIndex) loadStats() {
	var lastRebuild int64
	if err := idx.db.QueryRow("SELECT value FROM metadata WHERE key = 'last_rebuild'").Scan(&lastRebuild); err == nil && lastRebuild > 0 {
		idx.lastRebuild = time.Unix(lastRebuild, 0)
	}
	idx.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&idx.sessionCount)
	idx.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&idx.messageCount)
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats describes the current index contents.
type Stats struct {
	SessionCount int
	MessageCount int
	LastRebuild  time.Time
}

// Stats returns current index statistics.
func (idx *MessageIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return Stats{
		SessionCount: idx.sessionCount,
		MessageCount: idx.messageCount,
		LastRebuild:  idx.lastRebuild,
	}
}
