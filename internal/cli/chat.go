// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the lexi CLI.
//
// Handles the "lexi chat" command: a REPL that talks to OpenRouter,
// mirrors every completed exchange into the session store, and supports
// slash commands for switching models and loading saved sessions.
//
// Command: chat
// Short:   Start an interactive chat session
//
// Examples:
//   lexi chat                         Start chatting (default model)
//   lexi chat --model some/model      Use a specific model
//   lexi chat --session 4f3a          Resume a saved session
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /clear, /c          Clear conversation history
//   /model [name]       Show or switch model
//   /models             List free models
//   /history            Show conversation history
//   /sessions           List saved sessions
//   /load <id>          Load a saved session
//   /quit, /q           Exit chat
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/SAADAT-Abu/Lexi/internal/chat"
	"github.com/SAADAT-Abu/Lexi/internal/config"
	"github.com/SAADAT-Abu/Lexi/internal/model"
	"github.com/SAADAT-Abu/Lexi/internal/openrouter"
	"github.com/SAADAT-Abu/Lexi/internal/settings"
	"github.com/SAADAT-Abu/Lexi/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// Supports arrow keys for history navigation.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "input_history"),
	}
	cli.LoadHistory()

	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}

	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// chatRepl holds the state of one interactive chat run.
type chatRepl struct {
	app        *App
	controller *chat.Controller
	input      *ChatCLI
	quiet      bool

	// sessionID is empty until the first completed exchange; saved
	// sessions are created lazily so abandoned chats leave no trace.
	sessionID string
}

// HandleChat handles the "chat" command.
func HandleChat(app *App, args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	if app.FirstRun() {
		if err := HandleSetup(app, args); err != nil {
			return err
		}
	}

	if !app.Creds.IsConfigured() {
		return errors.New("no API key configured; run: lexi setup")
	}

	modelID, modelName := app.DefaultModel(args)
	if modelID == "" {
		return errors.New("no default model configured; run: lexi setup")
	}

	repl := &chatRepl{
		app:        app,
		controller: chat.NewController(app.Client, modelID, modelName),
		input:      NewChatCLI(),
		quiet:      args.Quiet,
	}
	defer repl.input.Close()

	// Keep the search index current while chatting
	if app.Index != nil {
		followCtx, stopFollow := context.WithCancel(context.Background())
		updates, unsubscribe := app.Store.Subscribe()
		go app.Index.Follow(followCtx, updates)
		defer func() {
			stopFollow()
			unsubscribe()
		}()
	}

	// Resume a saved session if requested
	parser := NewArgParser(args.Raw)
	if id := parser.Flag("session"); id != "" {
		if err := repl.loadSession(id); err != nil {
			return err
		}
	} else if prompt := app.Config.Chat.SystemPrompt; prompt != "" {
		repl.controller.LoadMessages([]model.Message{model.NewSystemMessage(prompt)})
	}

	if !repl.quiet {
		repl.printWelcome()
	}

	return repl.run()
}

// run is the main REPL loop.
func (r *chatRepl) run() error {
	for {
		input, err := r.input.ReadInput(PromptStyle.Render(r.app.Config.UI.Prompt))
		if err != nil {
			// Ctrl+C, Ctrl+D or read error all exit gracefully
			fmt.Println()
			r.printGoodbye()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			cont, err := r.handleSlashCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !cont {
				r.printGoodbye()
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			r.printGoodbye()
			return nil
		}

		if err := r.sendMessage(input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// sendMessage runs one exchange and mirrors the result into the store.
func (r *chatRepl) sendMessage(input string) error {
	ctx := context.Background()

	if err := r.controller.SendMessage(ctx, input); err != nil {
		return err
	}

	snap := r.controller.Snapshot()
	if reply, ok := lastAssistant(snap.Messages); ok {
		fmt.Println()
		displayResponse(reply.Content)
		fmt.Println()
	}

	if r.app.Config.UI.ShowTokens && !r.quiet {
		total := 0
		for _, msg := range snap.Messages {
			total += msg.EstimateTokens()
		}
		fmt.Fprintf(os.Stderr, "%s ~%d tokens in context\n", DimStyle.Render("[Stats]"), total)
	}

	return r.persist(snap)
}

// persist mirrors the current transcript into the session store,
// creating the session on the first completed exchange.
func (r *chatRepl) persist(snap chat.Snapshot) error {
	if r.sessionID == "" {
		title := model.DefaultPreview
		for _, msg := range snap.Messages {
			if msg.Role == model.RoleUser {
				title = model.TitleFromContent(msg.Content)
				break
			}
		}
		sess, err := r.app.Store.CreateSession(title, snap.ModelID, snap.ModelName, snap.Messages...)
		if err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		r.sessionID = sess.ID
		return nil
	}

	if err := r.app.Store.UpdateSession(r.sessionID, snap.Messages); err != nil {
		// A deleted session stops mirroring; start a fresh one next
		// exchange instead of failing the chat.
		if errors.Is(err, storage.ErrSessionNotFound) {
			r.sessionID = ""
			return nil
		}
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// loadSession replaces the REPL state with a saved session.
func (r *chatRepl) loadSession(idOrPrefix string) error {
	sess, err := r.app.ResolveSession(idOrPrefix)
	if err != nil {
		return err
	}

	r.controller.SetModel(sess.ModelID, sess.ModelName)
	r.controller.LoadMessages(sess.Messages)
	r.sessionID = sess.ID

	fmt.Printf("%s Loaded %q (%d messages)\n",
		SuccessStyle.Render("[OK]"),
		sess.GetTitle(),
		sess.MessageCount())
	return nil
}

func lastAssistant(messages []model.Message) (model.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleAssistant {
			return messages[i], true
		}
	}
	return model.Message{}, false
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func (r *chatRepl) handleSlashCommand(cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		r.printHelp()
		return true, nil

	case "/clear", "/c":
		r.controller.Reset()
		r.sessionID = ""
		if prompt := r.app.Config.Chat.SystemPrompt; prompt != "" {
			r.controller.LoadMessages([]model.Message{model.NewSystemMessage(prompt)})
		}
		fmt.Println(SuccessStyle.Render("[Conversation cleared]"))
		return true, nil

	case "/model", "/m":
		return r.handleModelCommand(args)

	case "/models":
		return true, r.printFreeModels()

	case "/history":
		r.printHistory()
		return true, nil

	case "/sessions":
		fmt.Print(storage.FormatSessionList(r.app.Store.ListSessions()))
		return true, nil

	case "/load":
		if len(args) == 0 {
			return true, errors.New("usage: /load <session-id>")
		}
		return true, r.loadSession(args[0])

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// handleModelCommand handles the /model command.
func (r *chatRepl) handleModelCommand(args []string) (bool, error) {
	modelID, modelName := r.controller.Model()

	if len(args) == 0 {
		fmt.Printf("%s Current model: %s (%s)\n",
			InfoStyle.Render("[Model]"),
			SuccessStyle.Render(modelName),
			modelID)
		return true, nil
	}

	newModel := args[0]

	// Look the model up in the catalog for its display name; switching
	// still works when the catalog is unreachable.
	newName := newModel
	ctx, cancel := context.WithTimeout(context.Background(), openrouter.DefaultTimeout)
	defer cancel()
	if models, err := r.app.Client.ListModels(ctx); err == nil {
		found := false
		for _, m := range models {
			if m.ID == newModel {
				newName = m.DisplayName()
				found = true
				break
			}
		}
		if !found {
			fmt.Fprintf(os.Stderr, "%s Model %q not in the catalog, using anyway\n",
				WarningStyle.Render("[Warning]"), newModel)
		}
	}

	r.controller.SetModel(newModel, newName)
	fmt.Printf("%s Switched to model: %s\n", SuccessStyle.Render("[OK]"), newModel)

	return true, nil
}

// printFreeModels lists the free models available right now.
func (r *chatRepl) printFreeModels() error {
	ctx, cancel := context.WithTimeout(context.Background(), openrouter.DefaultTimeout)
	defer cancel()

	models, err := r.app.Client.FreeModels(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	for _, m := range models {
		fmt.Printf("  %s  %s\n", SuccessStyle.Render(m.ID), DimStyle.Render(m.DisplayName()))
	}
	fmt.Println()
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

// printWelcome prints the welcome banner.
func (r *chatRepl) printWelcome() {
	_, modelName := r.controller.Model()

	fmt.Println()
	fmt.Println(TitleStyle.Render("lexi"))
	fmt.Println(RenderSeparator(30))
	fmt.Printf("%s %s\n", DimStyle.Render("Model:"), SuccessStyle.Render(modelName))
	if name := r.app.Settings.Get(settings.KeyUserName); name != "" {
		fmt.Printf("%s %s\n", DimStyle.Render("User:"), name)
	}
	fmt.Println()
	fmt.Println(DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printHelp prints available commands.
func (r *chatRepl) printHelp() {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Available Commands"))
	fmt.Println(RenderSeparator(20))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Clear conversation history"},
		{"/model [name]", "Show or switch model"},
		{"/models", "List free models"},
		{"/history", "Show conversation history"},
		{"/sessions", "List saved sessions"},
		{"/load <id>", "Load a saved session"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			SuccessStyle.Render(fmt.Sprintf("%-15s", c.cmd)),
			DimStyle.Render(c.desc))
	}

	fmt.Println()
}

// printHistory prints the current conversation.
func (r *chatRepl) printHistory() {
	snap := r.controller.Snapshot()
	if len(snap.Messages) == 0 {
		fmt.Println(DimStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Conversation History"))
	fmt.Println(RenderSeparator(25))
	fmt.Println()

	for i, msg := range snap.Messages {
		role := msg.Role.DisplayName()
		switch msg.Role {
		case model.RoleUser:
			role = UserStyle.Render(role)
		case model.RoleAssistant:
			role = AssistantStyle.Render(role)
		default:
			role = WarningStyle.Render(role)
		}

		content := strings.ReplaceAll(msg.Preview(100), "\n", " ")
		fmt.Printf("  %d. %s: %s\n", i+1, role, content)
	}

	fmt.Println()
}

// printGoodbye prints the exit line.
func (r *chatRepl) printGoodbye() {
	if r.sessionID != "" {
		fmt.Printf("%s Session saved (%s)\n",
			DimStyle.Render("[Saved]"),
			r.sessionID[:8])
	}
	fmt.Println(DimStyle.Render("Goodbye!"))
}
