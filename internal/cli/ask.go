// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question handler for the lexi CLI.
//
// Handles "lexi ask <question>" and bare "lexi <question>": sends a
// single question, prints the answer, and exits. Piped stdin is
// appended to the question as context, so output can feed pipelines.
//
// Examples:
//   lexi ask "What is a goroutine?"
//   lexi what is a goroutine
//   cat error.log | lexi ask "What caused this?"
//   lexi ask --model some/model "Explain TCP slow start"
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/SAADAT-Abu/Lexi/internal/model"
)

// maxStdinContext caps piped input so a runaway pipe cannot blow the
// request past provider limits.
const maxStdinContext = 64 * 1024

// HandleAsk handles a one-shot question.
func HandleAsk(app *App, args Args) error {
	if !app.Creds.IsConfigured() {
		return errors.New("no API key configured; run: lexi setup")
	}

	question := strings.TrimSpace(args.Query)
	if question == "" {
		return errors.New("usage: lexi ask <question>")
	}

	if piped := readPipedInput(); piped != "" {
		question = fmt.Sprintf("%s\n\nContext:\n```\n%s\n```", question, piped)
	}

	modelID, modelName := app.DefaultModel(args)
	if modelID == "" {
		return errors.New("no default model configured; run: lexi setup")
	}

	messages := []model.Message{}
	if prompt := app.Config.Chat.SystemPrompt; prompt != "" {
		messages = append(messages, model.NewSystemMessage(prompt))
	}
	messages = append(messages, model.NewUserMessage(question))

	if !args.Quiet && IsStdoutTTY() {
		fmt.Fprintf(os.Stderr, "%s Asking %s...\n", DimStyle.Render("[Lexi]"), modelName)
	}

	timeout := time.Duration(app.Config.API.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reply, err := app.Client.Complete(ctx, modelID, messages)
	if err != nil {
		return err
	}

	if args.JSON {
		return outputJSON(map[string]string{
			"model":    modelID,
			"question": args.Query,
			"answer":   reply.Content,
		})
	}

	displayResponse(reply.Content)
	if !strings.HasSuffix(reply.Content, "\n") {
		fmt.Println()
	}
	return nil
}

// readPipedInput returns piped stdin content, or "" when stdin is a
// terminal.
func readPipedInput() string {
	if IsTTY() {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinContext))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
