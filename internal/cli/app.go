// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared application wiring for lexi CLI commands.
//
// Every command needs the same small graph: config, settings store,
// session store, credentials and the OpenRouter client. App builds it
// once and hands it to the command handlers.

package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/SAADAT-Abu/Lexi/internal/config"
	"github.com/SAADAT-Abu/Lexi/internal/index"
	"github.com/SAADAT-Abu/Lexi/internal/model"
	"github.com/SAADAT-Abu/Lexi/internal/openrouter"
	"github.com/SAADAT-Abu/Lexi/internal/settings"
	"github.com/SAADAT-Abu/Lexi/internal/storage"
)

// App bundles the long-lived dependencies shared by CLI commands.
type App struct {
	Config   *config.Config
	Settings *settings.Store
	Store    *storage.SessionStore
	Creds    *openrouter.Credentials
	Client   *openrouter.Client

	// Index is nil when storage.search_index is disabled.
	Index *index.MessageIndex
}

// NewApp loads configuration and opens the settings and session stores.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return newAppWithConfig(cfg)
}

func newAppWithConfig(cfg *config.Config) (*App, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}

	st, err := settings.Open(filepath.Join(dataDir, settings.SettingsFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}

	store := storage.NewSessionStore(st)

	key, err := st.GetSecret(settings.KeyAPIKey)
	if err != nil {
		// Undecryptable key material is treated as unset; setup can
		// store a fresh key.
		key = ""
	}
	creds := openrouter.NewCredentials(key)

	client := openrouter.NewClient(creds).
		WithBaseURL(cfg.API.BaseURL).
		WithSiteURL(cfg.API.SiteURL).
		WithSiteName(cfg.API.SiteName).
		WithTimeout(time.Duration(cfg.API.TimeoutSecs) * time.Second)

	app := &App{
		Config:   cfg,
		Settings: st,
		Store:    store,
		Creds:    creds,
		Client:   client,
	}

	if cfg.Storage.SearchIndex {
		idx, err := index.Open(filepath.Join(dataDir, index.DatabaseFileName))
		if err == nil {
			app.Index = idx
		}
		// A broken index never blocks chat; search just falls back to
		// the store's substring scan.
	}

	return app, nil
}

// Close releases the app's resources.
func (a *App) Close() {
	if a.Index != nil {
		a.Index.Close()
	}
	if a.Settings != nil {
		a.Settings.Close()
	}
}

// DefaultModel resolves the model for a new conversation:
// CLI flag > config > stored default > none.
func (a *App) DefaultModel(args Args) (id, name string) {
	if args.Model != "" {
		return args.Model, args.Model
	}
	if a.Config.Chat.DefaultModel != "" {
		name = a.Config.Chat.DefaultModelName
		if name == "" {
			name = a.Config.Chat.DefaultModel
		}
		return a.Config.Chat.DefaultModel, name
	}

	id = a.Settings.Get(settings.KeyDefaultModel)
	name = a.Settings.Get(settings.KeyDefaultModelName)
	if name == "" {
		name = id
	}
	return id, name
}

// FirstRun reports whether setup has never completed.
func (a *App) FirstRun() bool {
	return a.Settings.Get(settings.KeyFirstRun) != "false"
}

// ResolveSession finds a session by id or unique id prefix.
func (a *App) ResolveSession(idOrPrefix string) (model.ChatSession, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return model.ChatSession{}, storage.ErrSessionNotFound
	}

	if sess, err := a.Store.GetSession(idOrPrefix); err == nil {
		return sess, nil
	}

	var matches []model.ChatSession
	for _, sess := range a.Store.ListSessions() {
		if strings.HasPrefix(sess.ID, idOrPrefix) {
			matches = append(matches, sess)
		}
	}

	switch len(matches) {
	case 0:
		return model.ChatSession{}, storage.ErrSessionNotFound
	case 1:
		return matches[0], nil
	default:
		return model.ChatSession{}, fmt.Errorf("session id %q is ambiguous (%d matches)", idOrPrefix, len(matches))
	}
}
