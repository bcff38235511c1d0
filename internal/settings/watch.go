// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings provides the durable key-value store backing user
// preferences and chat session persistence.
package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of file events into one reload. Atomic
// writes produce create+rename pairs; editors produce more.
const watchDebounce = 200 * time.Millisecond

// pollInterval is used by the fallback watcher when fsnotify is unavailable.
const pollInterval = 2 * time.Second

// fileWatcher watches a single file for modification and invokes onChange
// after a debounce window. It watches the parent directory rather than the
// file itself; atomic renames replace the inode and would otherwise detach
// the watch.
type fileWatcher struct {
	path     string
	onChange func()

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc

	mu      sync.Mutex
	pending time.Time
}

// newFileWatcher starts watching path. When fsnotify cannot be initialized
// on this platform, a modification-time poller is used instead.
func newFileWatcher(path string, onChange func()) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	fw := &fileWatcher{
		path:     abs,
		onChange: onChange,
		cancel:   cancel,
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if werr := watcher.Add(filepath.Dir(abs)); werr == nil {
			fw.watcher = watcher
			go fw.processEvents(ctx)
			go fw.processPending(ctx)
			return fw, nil
		}
		watcher.Close()
	}

	// Fallback to polling
	go fw.poll(ctx)
	return fw, nil
}

// processEvents filters directory events down to the watched file.
func (fw *fileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				fw.mu.Lock()
				fw.pending = time.Now()
				fw.mu.Unlock()
			}

		case _, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Non-fatal; keep watching.
		}
	}
}

// processPending fires onChange once the debounce window has elapsed.
func (fw *fileWatcher) processPending(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fw.mu.Lock()
			fire := !fw.pending.IsZero() && time.Since(fw.pending) >= watchDebounce
			if fire {
				fw.pending = time.Time{}
			}
			fw.mu.Unlock()

			if fire {
				fw.onChange()
			}
		}
	}
}

// poll is the fallback path: compare modification times on an interval.
func (fw *fileWatcher) poll(ctx context.Context) {
	var lastMod time.Time
	if info, err := os.Stat(fw.path); err == nil {
		lastMod = info.ModTime()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			info, err := os.Stat(fw.path)
			if err != nil {
				continue
			}
			if info.ModTime().After(lastMod) {
				lastMod = info.ModTime()
				fw.onChange()
			}
		}
	}
}

// Close stops the watcher and releases resources.
func (fw *fileWatcher) Close() error {
	fw.cancel()
	if fw.watcher != nil {
		return fw.watcher.Close()
	}
	return nil
}
