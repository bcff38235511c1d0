// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration management for the lexi CLI.
//
// Handles "lexi config": show, get, set, and list configuration values.
// The API key is not a config value; it lives encrypted in the settings
// store and is managed through "lexi setup".
//
// Examples:
//   lexi config show
//   lexi config get chat.default_model
//   lexi config set ui.prompt ">> "
//   lexi config keys
package cli

import (
	"errors"
	"fmt"

	"github.com/SAADAT-Abu/Lexi/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(app *App, args Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "show", "list":
		return configShow(app, args)
	case "get":
		return configGet(app, parser)
	case "set":
		return configSet(app, parser)
	case "keys":
		return configKeys(args)
	default:
		return fmt.Errorf("unknown config subcommand: %s", parser.Subcommand())
	}
}

func configShow(app *App, args Args) error {
	if args.JSON {
		out := make(map[string]string, len(config.Keys()))
		for _, key := range config.Keys() {
			value, err := app.Config.Get(key)
			if err != nil {
				continue
			}
			out[key] = value
		}
		return outputJSON(out)
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Configuration"))
	fmt.Println(RenderSeparator(40))
	fmt.Println()

	for _, key := range config.Keys() {
		value, err := app.Config.Get(key)
		if err != nil {
			continue
		}
		if value == "" {
			value = DimStyle.Render("(not set)")
		}
		fmt.Printf("  %-24s %s\n", SuccessStyle.Render(key), value)
	}

	fmt.Println()
	fmt.Printf("%s %s\n", DimStyle.Render("Key:"), app.Creds.Masked())
	fmt.Println()
	return nil
}

func configGet(app *App, parser *ArgParser) error {
	key := parser.Positional(1)
	if key == "" {
		return errors.New("usage: lexi config get <key>")
	}

	value, err := app.Config.Get(key)
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func configSet(app *App, parser *ArgParser) error {
	key := parser.Positional(1)
	value := parser.Positional(2)
	if key == "" {
		return errors.New("usage: lexi config set <key> <value>")
	}

	if err := app.Config.Set(key, value); err != nil {
		return err
	}
	if err := config.Save(app.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), key, value)
	return nil
}

func configKeys(args Args) error {
	if args.JSON {
		return outputJSON(config.Keys())
	}
	for _, key := range config.Keys() {
		fmt.Println(key)
	}
	return nil
}
