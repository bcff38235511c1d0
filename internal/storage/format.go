// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable persistence for chat sessions.
package storage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/SAADAT-Abu/Lexi/internal/model"
	"github.com/SAADAT-Abu/Lexi/internal/util"
)

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionList formats sessions for display in a table format.
// Returns a human-readable string with session ID, last update, message
// count, and preview.
func FormatSessionList(sessions []model.ChatSession) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString("Sessions:\n")
	sb.WriteString("-----------------------------------------------------\n")
	sb.WriteString(formatPadded("ID", 12) + " " + formatPadded("Updated", 20) + " " + formatPadded("Messages", 8) + " Title\n")
	sb.WriteString("-----------------------------------------------------\n")

	for _, s := range sessions {
		idStr := s.ID
		if len(idStr) > 12 {
			idStr = idStr[:12]
		}
		updatedStr := s.UpdatedAt.Format("2006-01-02 15:04")
		title := util.TruncateRunes(util.CollapseWhitespace(s.GetTitle()), 30)

		sb.WriteString(formatPadded(idStr, 12) + " " +
			formatPadded(updatedStr, 20) + " " +
			formatPadded(util.IntToString(s.MessageCount()), 8) + " " +
			title + "\n")
	}
	return sb.String()
}

// formatPadded pads a string to the specified width with spaces.
func formatPadded(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// sessionMatches reports whether any message in the session contains the
// query, case-insensitively.
func sessionMatches(sess model.ChatSession, query string) bool {
	query = strings.ToLower(query)
	if strings.Contains(strings.ToLower(sess.Title), query) {
		return true
	}
	for _, msg := range sess.Messages {
		if strings.Contains(strings.ToLower(msg.Content), query) {
			return true
		}
	}
	return false
}

// =============================================================================
// SESSION EXPORT
// =============================================================================

// ExportMarkdown exports a session as a Markdown formatted string.
// Includes session metadata and all messages with role labels.
func ExportMarkdown(sess model.ChatSession) string {
	var sb strings.Builder
	sb.WriteString("# " + sess.GetTitle() + "\n\n")
	sb.WriteString("Session: " + sess.ID + "\n")
	if sess.ModelName != "" {
		sb.WriteString("Model: " + sess.ModelName + "\n")
	}
	sb.WriteString("Created: " + sess.CreatedAt.Format(time.RFC3339) + "\n")
	sb.WriteString("Updated: " + sess.UpdatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range sess.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "**:\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// ExportJSON exports a session as a pretty-printed JSON byte array.
func ExportJSON(sess model.ChatSession) ([]byte, error) {
	return json.MarshalIndent(sess, "", "  ")
}
