// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models_cmd.go - Model catalog listing for the lexi CLI.
//
// Handles "lexi models": lists the OpenRouter catalog, optionally
// filtered to free models.
//
// Examples:
//   lexi models             List all available models
//   lexi models free        List free models only
//   lexi models --json      Machine-readable output
package cli

import (
	"context"
	"fmt"

	"github.com/SAADAT-Abu/Lexi/internal/openrouter"
)

// HandleModels handles the "models" command.
func HandleModels(app *App, args Args) error {
	parser := NewArgParser(args.Raw)
	freeOnly := parser.Subcommand() == "free" || parser.BoolFlag("free")

	ctx, cancel := context.WithTimeout(context.Background(), openrouter.DefaultTimeout)
	defer cancel()

	var (
		models []openrouter.Model
		err    error
	)
	if freeOnly {
		models, err = app.Client.FreeModels(ctx)
	} else {
		models, err = app.Client.ListModels(ctx)
	}
	if err != nil {
		return err
	}

	if args.JSON {
		type entry struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Free bool   `json:"free"`
		}
		out := make([]entry, 0, len(models))
		for _, m := range models {
			out = append(out, entry{ID: m.ID, Name: m.DisplayName(), Free: m.IsFree()})
		}
		return outputJSON(out)
	}

	defaultID, _ := app.DefaultModel(args)

	fmt.Println()
	if freeOnly {
		fmt.Println(TitleStyle.Render("Free Models"))
	} else {
		fmt.Println(TitleStyle.Render("Available Models"))
	}
	fmt.Println(RenderSeparator(40))
	fmt.Println()

	for _, m := range models {
		marker := "  "
		if m.ID == defaultID {
			marker = SuccessStyle.Render("* ")
		}

		tag := ""
		if m.IsFree() {
			tag = " " + SuccessStyle.Render("[free]")
		}

		fmt.Printf("%s%s%s\n", marker, m.ID, tag)
		fmt.Printf("    %s\n", DimStyle.Render(m.DisplayName()))
	}

	fmt.Println()
	fmt.Printf("%d models", len(models))
	if defaultID != "" {
		fmt.Printf(" · %s = default", SuccessStyle.Render("*"))
	}
	fmt.Println()
	return nil
}
