// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Centralized styling for all lexi CLI commands.
//
// Colors are automatically disabled for non-TTY output and when the
// NO_COLOR environment variable is set.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// init configures lipgloss color profile based on terminal capabilities.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and the welcome banner
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// PromptStyle is the REPL input prompt
	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // Cyan
			Bold(true)

	// UserStyle marks user messages in transcripts
	UserStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // Cyan

	// AssistantStyle marks assistant messages in transcripts
	AssistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")) // Purple

	// SuccessStyle is used for success messages and OK statuses
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	// ErrorStyle is used for error messages and failures
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// WarningStyle is used for warnings and cautions
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Yellow/Orange

	// DimStyle is used for secondary information and hints
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim gray

	// InfoStyle is used for informational messages
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")) // Blue
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal separator line.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 30
	}
	return DimStyle.Render(strings.Repeat("─", width))
}

// RenderConditional renders text with style only when colors are
// enabled.
func RenderConditional(style lipgloss.Style, text string) string {
	if !ColorsEnabled() {
		return text
	}
	return style.Render(text)
}
