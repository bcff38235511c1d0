// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - Saved-session management for the lexi CLI.
//
// Handles "lexi history" and its subcommands: list, show, export,
// rename, and delete saved chat sessions.
//
// Examples:
//   lexi history                      List saved sessions
//   lexi history show 4f3a            Show a session transcript
//   lexi history export 4f3a --format md --output chat.md
//   lexi history rename 4f3a "TCP tuning notes"
//   lexi history delete 4f3a --yes
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/SAADAT-Abu/Lexi/internal/history"
	"github.com/SAADAT-Abu/Lexi/internal/model"
	"github.com/SAADAT-Abu/Lexi/internal/storage"
)

// HandleHistory handles the "history" command.
func HandleHistory(app *App, args Args) error {
	dir := history.NewDirectory(app.Store)
	defer dir.Close()

	if dir.Corrupt() {
		fmt.Fprintf(os.Stderr, "%s Session file was corrupt and has been reset; a backup was kept next to it\n",
			WarningStyle.Render("[Warning]"))
	}

	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "list", "ls":
		return historyList(app, dir, args)
	case "show", "view":
		return historyShow(app, dir, parser)
	case "export":
		return historyExport(app, dir, parser)
	case "rename":
		return historyRename(app, dir, parser)
	case "delete", "rm":
		return historyDelete(app, dir, parser)
	default:
		return fmt.Errorf("unknown history subcommand: %s", parser.Subcommand())
	}
}

func historyList(app *App, dir *history.Directory, args Args) error {
	sessions := dir.Sessions()

	if args.JSON {
		type entry struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Model    string `json:"model"`
			Messages int    `json:"messages"`
			Updated  string `json:"updated"`
		}
		out := make([]entry, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, entry{
				ID:       s.ID,
				Title:    s.GetTitle(),
				Model:    s.ModelID,
				Messages: s.MessageCount(),
				Updated:  s.FormattedDate(),
			})
		}
		return outputJSON(out)
	}

	fmt.Print(storage.FormatSessionList(sessions))
	return nil
}

func historyShow(app *App, dir *history.Directory, parser *ArgParser) error {
	sess, err := resolveFrom(app, parser.Positional(1))
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render(sess.GetTitle()))
	fmt.Printf("%s %s · %d messages · %s\n",
		DimStyle.Render("Model:"), sess.ModelName,
		sess.MessageCount(), sess.FormattedDate())
	fmt.Println(RenderSeparator(50))
	fmt.Println()

	for _, msg := range sess.Messages {
		label := msg.Role.DisplayName()
		switch msg.Role {
		case model.RoleUser:
			fmt.Printf("%s\n%s\n\n", UserStyle.Render(label+":"), msg.Content)
		case model.RoleAssistant:
			fmt.Printf("%s\n", AssistantStyle.Render(label+":"))
			displayResponse(msg.Content)
			fmt.Println()
		default:
			fmt.Printf("%s\n%s\n\n", DimStyle.Render(label+":"), msg.Content)
		}
	}
	return nil
}

func historyExport(app *App, dir *history.Directory, parser *ArgParser) error {
	sess, err := resolveFrom(app, parser.Positional(1))
	if err != nil {
		return err
	}

	format := parser.FlagOrDefault("format", "md")
	var data []byte
	switch format {
	case "md", "markdown":
		data = []byte(storage.ExportMarkdown(sess))
	case "json":
		data, err = storage.ExportJSON(sess)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
	default:
		return fmt.Errorf("unknown export format: %s (use md or json)", format)
	}

	output := parser.Flag("output")
	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Printf("%s Exported to %s\n", SuccessStyle.Render("[OK]"), output)
	return nil
}

func historyRename(app *App, dir *history.Directory, parser *ArgParser) error {
	sess, err := resolveFrom(app, parser.Positional(1))
	if err != nil {
		return err
	}

	title := strings.TrimSpace(JoinPositional(parser, 2))
	if title == "" {
		return errors.New("usage: lexi history rename <id> <new title>")
	}

	if err := dir.Rename(sess.ID, title); err != nil {
		return err
	}
	fmt.Printf("%s Renamed to %q\n", SuccessStyle.Render("[OK]"), title)
	return nil
}

func historyDelete(app *App, dir *history.Directory, parser *ArgParser) error {
	sess, err := resolveFrom(app, parser.Positional(1))
	if err != nil {
		return err
	}

	if !parser.BoolFlag("yes") && !parser.BoolFlag("confirm") {
		answer, err := promptInput(fmt.Sprintf("Delete %q (%d messages)? [y/N]: ",
			sess.GetTitle(), sess.MessageCount()))
		if err != nil {
			return err
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Println(DimStyle.Render("Cancelled."))
			return nil
		}
	}

	if err := dir.Delete(sess.ID); err != nil {
		return err
	}
	fmt.Printf("%s Deleted session %s\n", SuccessStyle.Render("[OK]"), sess.ID[:8])
	return nil
}

// resolveFrom resolves an id or unique prefix, requiring a non-empty
// argument.
func resolveFrom(app *App, idOrPrefix string) (model.ChatSession, error) {
	if idOrPrefix == "" {
		return model.ChatSession{}, errors.New("missing session id (see: lexi history)")
	}
	return app.ResolveSession(idOrPrefix)
}
