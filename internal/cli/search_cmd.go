// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// search_cmd.go - Full-text search across saved sessions.
//
// Handles "lexi search <query>": searches message content through the
// SQLite FTS index when available, falling back to a substring scan of
// the session store when the index is disabled or broken.
//
// Examples:
//   lexi search "rate limit"
//   lexi search goroutine --role assistant
//   lexi search tls --limit 10 --json
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SAADAT-Abu/Lexi/internal/index"
	"github.com/SAADAT-Abu/Lexi/internal/model"
	"github.com/SAADAT-Abu/Lexi/internal/storage"
	"github.com/SAADAT-Abu/Lexi/internal/util"
)

// HandleSearch handles the "search" command.
func HandleSearch(app *App, args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return errors.New("usage: lexi search <query>")
	}

	parser := NewArgParser(args.Raw)

	if app.Index == nil {
		return searchFallback(app, query, args)
	}

	// The index is a derived view; refresh it from the store so results
	// include sessions saved since the last rebuild.
	ctx := context.Background()
	if err := app.Index.Rebuild(ctx, app.Store.ListSessions()); err != nil {
		return searchFallback(app, query, args)
	}

	options := index.DefaultSearchOptions()
	if limit := parser.Flag("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid --limit: %s", limit)
		}
		options.MaxResults = n
	}
	if role := parser.Flag("role"); role != "" {
		options.Roles = []model.Role{model.Role(role)}
	}
	if session := parser.Flag("session"); session != "" {
		sess, err := app.ResolveSession(session)
		if err != nil {
			return err
		}
		options.SessionID = sess.ID
	}

	results, err := app.Index.Search(query, options)
	if err != nil {
		return searchFallback(app, query, args)
	}

	if args.JSON {
		return outputJSON(results)
	}

	if len(results) == 0 {
		fmt.Println("No matches found.")
		return nil
	}

	fmt.Println()
	fmt.Printf("%s %q\n", TitleStyle.Render("Search:"), query)
	fmt.Println(RenderSeparator(50))
	fmt.Println()

	lastSession := ""
	for _, r := range results {
		if r.SessionID != lastSession {
			fmt.Printf("%s %s %s\n",
				SuccessStyle.Render(r.SessionID[:8]),
				r.SessionTitle,
				DimStyle.Render("("+r.ModelName+")"))
			lastSession = r.SessionID
		}

		snippet := util.TruncateRunes(util.CollapseWhitespace(r.Content), 100)
		fmt.Printf("    %s %s\n", DimStyle.Render(r.Role.DisplayName()+":"), snippet)
	}

	fmt.Println()
	fmt.Printf("%d matches\n", len(results))
	return nil
}

// searchFallback scans the session store directly when the FTS index
// cannot serve the query.
func searchFallback(app *App, query string, args Args) error {
	sessions := app.Store.SearchMessages(query)

	if args.JSON {
		type entry struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Messages int    `json:"messages"`
		}
		out := make([]entry, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, entry{ID: s.ID, Title: s.GetTitle(), Messages: s.MessageCount()})
		}
		return outputJSON(out)
	}

	if len(sessions) == 0 {
		fmt.Println("No matches found.")
		return nil
	}

	fmt.Print(storage.FormatSessionList(sessions))
	return nil
}
