// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - First-run setup wizard for the lexi CLI.
//
// Handles "lexi setup": collects an OpenRouter API key (masked input,
// stored encrypted in the settings store, never written to config
// files), an optional display name, and a default model picked from
// the currently free catalog entries.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/SAADAT-Abu/Lexi/internal/openrouter"
	"github.com/SAADAT-Abu/Lexi/internal/settings"
)

// HandleSetup handles the "setup" command.
func HandleSetup(app *App, args Args) error {
	if err := RequiresTTY("setup"); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("lexi setup"))
	fmt.Println(RenderSeparator(30))
	fmt.Println()

	if err := setupAPIKey(app); err != nil {
		return err
	}

	if err := setupUserName(app); err != nil {
		return err
	}

	if err := setupDefaultModel(app, args); err != nil {
		return err
	}

	if err := app.Settings.Set(settings.KeyFirstRun, "false"); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	fmt.Println()
	fmt.Printf("%s Setup complete. Start chatting with: lexi chat\n",
		SuccessStyle.Render("[OK]"))
	fmt.Println()
	return nil
}

// setupAPIKey prompts for and stores the OpenRouter API key.
func setupAPIKey(app *App) error {
	if app.Creds.IsConfigured() {
		fmt.Printf("%s API key already configured (%s)\n",
			InfoStyle.Render("[Key]"), app.Creds.Masked())

		keep, err := promptInput("Keep existing key? [Y/n]: ")
		if err != nil {
			return err
		}
		if keep == "" || strings.EqualFold(keep, "y") || strings.EqualFold(keep, "yes") {
			return nil
		}
	}

	fmt.Println("Get a free API key at: https://openrouter.ai/keys")
	fmt.Println()

	key, err := promptSecure("OpenRouter API key: ")
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)

	if key == "" {
		return errors.New("no API key entered")
	}
	if !openrouter.ValidateAPIKey(key) {
		return errors.New("that doesn't look like an OpenRouter key (expected sk-or-...)")
	}

	if err := app.Settings.SetSecret(settings.KeyAPIKey, key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	app.Creds.Set(key)

	fmt.Printf("%s API key saved\n", SuccessStyle.Render("[OK]"))
	return nil
}

// setupUserName prompts for an optional display name.
func setupUserName(app *App) error {
	current := app.Settings.Get(settings.KeyUserName)
	prompt := "Your name (optional): "
	if current != "" {
		prompt = fmt.Sprintf("Your name [%s]: ", current)
	}

	name, err := promptInput(prompt)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)

	if name == "" {
		return nil
	}
	return app.Settings.Set(settings.KeyUserName, name)
}

// setupDefaultModel picks a default model from the free catalog.
func setupDefaultModel(app *App, args Args) error {
	if args.Model != "" {
		return saveDefaultModel(app, args.Model, args.Model)
	}

	fmt.Println()
	fmt.Println(DimStyle.Render("Fetching free models..."))

	ctx, cancel := context.WithTimeout(context.Background(), openrouter.DefaultTimeout)
	defer cancel()

	models, err := app.Client.FreeModels(ctx)
	if err != nil || len(models) == 0 {
		// Catalog unreachable: keep any existing default, otherwise
		// the user can set one later with /model or --model.
		fmt.Fprintf(os.Stderr, "%s Could not fetch the model catalog; set a model later with --model\n",
			WarningStyle.Render("[Warning]"))
		return nil
	}

	limit := len(models)
	if limit > 10 {
		limit = 10
	}

	fmt.Println()
	for i, m := range models[:limit] {
		fmt.Printf("  %2d. %s %s\n", i+1,
			SuccessStyle.Render(m.DisplayName()),
			DimStyle.Render(m.ID))
	}
	fmt.Println()

	choice, err := promptInput(fmt.Sprintf("Default model [1-%d, Enter for 1]: ", limit))
	if err != nil {
		return err
	}

	idx := 0
	if choice = strings.TrimSpace(choice); choice != "" {
		n, err := strconv.Atoi(choice)
		if err != nil || n < 1 || n > limit {
			return fmt.Errorf("invalid choice: %s", choice)
		}
		idx = n - 1
	}

	picked := models[idx]
	return saveDefaultModel(app, picked.ID, picked.DisplayName())
}

func saveDefaultModel(app *App, modelID, modelName string) error {
	if err := app.Settings.Set(settings.KeyDefaultModel, modelID); err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}
	if err := app.Settings.Set(settings.KeyDefaultModelName, modelName); err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}

	fmt.Printf("%s Default model: %s\n", SuccessStyle.Render("[OK]"), modelName)
	return nil
}

// =============================================================================
// PROMPTS
// =============================================================================

// promptInput reads a line of input from stdin.
func promptInput(prompt string) (string, error) {
	fmt.Print(PromptStyle.Render(prompt))

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptSecure reads input without echoing it to the terminal.
// Falls back to plain input when stdin is not a terminal.
func promptSecure(prompt string) (string, error) {
	fmt.Print(PromptStyle.Render(prompt))

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptInput("")
	}

	data, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
