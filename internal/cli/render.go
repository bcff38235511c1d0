// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Markdown rendering for model responses.
//
// Assistant replies are markdown; when stdout is a terminal they are
// rendered with glamour, otherwise the raw text is printed so pipes
// and redirects get clean output.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/glamour"
)

var (
	rendererOnce sync.Once
	renderer     *glamour.TermRenderer
)

// markdownRenderer returns the shared terminal renderer, or nil when
// rendering is unavailable and raw output should be used.
func markdownRenderer() *glamour.TermRenderer {
	rendererOnce.Do(func() {
		if !IsStdoutTTY() || !ColorsEnabled() {
			return
		}

		width := GetTerminalWidth()
		if width > 100 {
			width = 100
		}

		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return
		}
		renderer = r
	})
	return renderer
}

// renderMarkdown renders markdown for terminal display.
// Falls back to the raw text when rendering is unavailable.
func renderMarkdown(text string) string {
	r := markdownRenderer()
	if r == nil {
		return text
	}

	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

// displayResponse prints a model response to stdout.
func displayResponse(text string) {
	fmt.Print(renderMarkdown(text))
}

// outputJSON writes indented JSON to stdout.
func outputJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}
