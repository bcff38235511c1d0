// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides full-text search over stored chat sessions.
package index

import (
	"fmt"
	"strings"

	"github.com/SAADAT-Abu/Lexi/internal/model"
)

// =============================================================================
// SEARCH RESULT
// =============================================================================

// SearchResult is one matching message together with the session it
// belongs to.
type SearchResult struct {
	SessionID    string
	SessionTitle string
	ModelName    string
	Role         model.Role
	Seq          int
	Content      string
	Rank         float64 // bm25 rank, more negative is more relevant
}

// SearchOptions configures search behavior
type SearchOptions struct {
	// MaxResults limits the number of results (0 = unlimited)
	MaxResults int

	// Roles filters by message role (empty = all roles)
	Roles []model.Role

	// SessionID restricts the search to a single session
	SessionID string
}

// DefaultSearchOptions returns default search options
func DefaultSearchOptions() *SearchOptions {
	return &SearchOptions{
		MaxResults: 50,
	}
}

// =============================================================================
// SEARCH METHODS
// =============================================================================

// Search finds messages matching the query using full-text search.
// Results are ordered by relevance. An empty query matches nothing.
func (idx *MessageIndex) Search(query string, options *SearchOptions) ([]SearchResult, error) {
	if options == nil {
		options = DefaultSearchOptions()
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, ErrClosed
	}

	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return []SearchResult{}, nil
	}

	sqlQuery := `
		SELECT
			m.session_id, s.title, s.model_name, m.role, m.seq, m.content,
			fts.rank
		FROM messages_fts fts
		JOIN messages m ON m.id = fts.rowid
		JOIN sessions s ON s.id = m.session_id
		WHERE messages_fts MATCH ?
	`

	var args []interface{}
	args = append(args, ftsQuery)

	var conditions []string

	if len(options.Roles) > 0 {
		placeholders := make([]string, len(options.Roles))
		for i, role := range options.Roles {
			placeholders[i] = "?"
			args = append(args, role.String())
		}
		conditions = append(conditions, "m.role IN ("+strings.Join(placeholders, ",")+")")
	}

	if options.SessionID != "" {
		conditions = append(conditions, "m.session_id = ?")
		args = append(args, options.SessionID)
	}

	if len(conditions) > 0 {
		sqlQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sqlQuery += " ORDER BY fts.rank"

	if options.MaxResults > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, options.MaxResults)
	}

	rows, err := idx.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var result SearchResult
		var role string

		err := rows.Scan(
			&result.SessionID,
			&result.SessionTitle,
			&result.ModelName,
			&role,
			&result.Seq,
			&result.Content,
			&result.Rank,
		)
		if err != nil {
			continue
		}

		result.Role = model.Role(role)
		results = append(results, result)
	}

	return results, rows.Err()
}

// SearchSessions returns the distinct sessions containing a match,
// ordered by best matching message. Used by the history listing to
// filter sessions by content.
func (idx *MessageIndex) SearchSessions(query string, maxResults int) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, ErrClosed
	}

	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return []string{}, nil
	}

	sqlQuery := `
		SELECT m.session_id, MIN(fts.rank) AS best
		FROM messages_fts fts
		JOIN messages m ON m.id = fts.rowid
		WHERE messages_fts MATCH ?
		GROUP BY m.session_id
		ORDER BY best
	`
	args := []interface{}{ftsQuery}
	if maxResults > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, maxResults)
	}

	rows, err := idx.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err == nil {
			ids = append(ids, id)
		}
	}

	return ids, rows.Err()
}

// buildFTSQuery builds an FTS5 query from user input. Every term gets a
// prefix match so partial words still find their messages.
func buildFTSQuery(query string) string {
	terms := strings.Fields(sanitizeFTSQuery(strings.TrimSpace(query)))
	if len(terms) == 0 {
		return ""
	}

	for i, term := range terms {
		terms[i] = term + "*"
	}
	return strings.Join(terms, " ")
}

// sanitizeFTSQuery strips FTS5 special characters to prevent query
// syntax injection.
func sanitizeFTSQuery(query string) string {
	// FTS5 special characters: " * ( ) { } [ ] : ^ - ~
	specialChars := []string{"\"", "*", "(", ")", "{", "}", "[", "]", ":", "^", "-", "~"}

	for _, char := range specialChars {
		query = strings.ReplaceAll(query, char, " ")
	}

	return query
}
