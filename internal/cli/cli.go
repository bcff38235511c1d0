// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for lexi.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdHistory
	CmdModels
	CmdSearch
	CmdConfig
	CmdSetup
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	Model   string
	JSON    bool

	// Command-specific
	Subcommand string
	Query      string

	// Raw args (remaining after global flag parsing)
	Raw []string
}

const usageText = `lexi - OpenRouter chat for the terminal

Lexi is a terminal chat client for OpenRouter models with durable
session history and full-text search.

Usage:
  lexi                        Start interactive chat
  lexi chat                   Start interactive chat
  lexi chat --session ID      Resume a saved session
  lexi ask "question"         Ask a single question and exit
  lexi history [subcommand]   Manage saved sessions
  lexi search <query>         Search message content across sessions
  lexi models [free]          List available models
  lexi config [show|get|set]  Configuration
  lexi setup                  First-run wizard
  lexi version                Show version

History Commands:
  lexi history                      List all saved sessions
  lexi history list                 List all saved sessions
  lexi history show <id>            Show a session transcript
  lexi history export <id>          Export a session
    --format json|md                Export format (default: md)
    --output FILE                   Write to file (default: stdout)
  lexi history rename <id> <title>  Rename a session
  lexi history delete <id>          Delete a session
    --confirm                       Required confirmation flag

Model Commands:
  lexi models                       List all available models
  lexi models free                  List free models only
    --json                          Output in JSON format

Config Commands:
  lexi config show                  Show current configuration
  lexi config get <key>             Get a configuration value
  lexi config set <key> <value>     Set a configuration value
  lexi config keys                  List configurable keys

Interactive Commands (during chat):
  /help, /h           Show available commands
  /clear, /c          Clear conversation history
  /model [name]       Show or switch model
  /models             List free models
  /history            Show conversation history
  /sessions           List saved sessions
  /load <id>          Load a saved session
  /quit, /q           Exit chat

Global Flags:
  -q, --quiet     Minimal output
  -v, --verbose   Debug output
  --model NAME    Override default model
  --json          Output in JSON format

Examples:
  lexi                                Start chatting
  lexi ask "What is a goroutine?"     One-shot question
  lexi chat --model meta-llama/llama-3-8b-instruct:free
  lexi history show 4f3a              Show a session (id prefix works)
  lexi search "rate limit"            Find sessions mentioning rate limits
  lexi models free                    Show models that cost nothing

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("lexi version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given arguments. Split out from Parse for tests.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// No command defaults to interactive chat
	if len(remaining) == 0 {
		return CmdChat, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		parsedArgs.Subcommand = remaining[0]
	}

	switch cmd {
	case "chat":
		return CmdChat, parsedArgs

	case "ask":
		parsedArgs.Query = joinNonFlags(remaining)
		return CmdAsk, parsedArgs

	case "history", "sessions":
		return CmdHistory, parsedArgs

	case "search":
		parsedArgs.Query = joinNonFlags(remaining)
		return CmdSearch, parsedArgs

	case "models", "model":
		return CmdModels, parsedArgs

	case "config":
		return CmdConfig, parsedArgs

	case "setup", "init":
		return CmdSetup, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command is treated as a one-shot question
		parsedArgs.Query = strings.TrimSpace(cmd + " " + joinNonFlags(remaining))
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--model":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--model=") {
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// joinNonFlags joins the non-flag arguments into a single query string.
func joinNonFlags(args []string) string {
	var words []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			words = append(words, arg)
		}
	}
	return strings.Join(words, " ")
}
