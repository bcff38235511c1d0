// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"
)

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

func TestParseArgs_Commands(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want Command
	}{
		{"no args defaults to chat", []string{}, CmdChat},
		{"chat", []string{"chat"}, CmdChat},
		{"ask", []string{"ask", "what", "is", "go"}, CmdAsk},
		{"history", []string{"history"}, CmdHistory},
		{"sessions alias", []string{"sessions"}, CmdHistory},
		{"search", []string{"search", "rate", "limit"}, CmdSearch},
		{"models", []string{"models"}, CmdModels},
		{"model alias", []string{"model"}, CmdModels},
		{"config", []string{"config", "show"}, CmdConfig},
		{"setup", []string{"setup"}, CmdSetup},
		{"init alias", []string{"init"}, CmdSetup},
		{"version", []string{"version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"help flag", []string{"--help"}, CmdHelp},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, _ := ParseArgs(tc.argv)
			if cmd != tc.want {
				t.Errorf("ParseArgs(%v) = %v, want %v", tc.argv, cmd, tc.want)
			}
		})
	}
}

func TestParseArgs_UnknownCommandBecomesQuestion(t *testing.T) {
	cmd, args := ParseArgs([]string{"what", "is", "a", "goroutine"})
	if cmd != CmdAsk {
		t.Fatalf("expected CmdAsk, got %v", cmd)
	}
	if args.Query != "what is a goroutine" {
		t.Errorf("Query = %q, want %q", args.Query, "what is a goroutine")
	}
}

func TestParseArgs_AskJoinsQuery(t *testing.T) {
	cmd, args := ParseArgs([]string{"ask", "explain", "TCP", "slow", "start"})
	if cmd != CmdAsk {
		t.Fatalf("expected CmdAsk, got %v", cmd)
	}
	if args.Query != "explain TCP slow start" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseArgs_GlobalFlags(t *testing.T) {
	cmd, args := ParseArgs([]string{"-q", "--json", "--model", "some/model", "models"})
	if cmd != CmdModels {
		t.Fatalf("expected CmdModels, got %v", cmd)
	}
	if !args.Quiet {
		t.Error("expected Quiet to be set")
	}
	if !args.JSON {
		t.Error("expected JSON to be set")
	}
	if args.Model != "some/model" {
		t.Errorf("Model = %q", args.Model)
	}
}

func TestParseArgs_ModelEqualsForm(t *testing.T) {
	_, args := ParseArgs([]string{"chat", "--model=a/b:free"})
	if args.Model != "a/b:free" {
		t.Errorf("Model = %q, want %q", args.Model, "a/b:free")
	}
}

func TestParseArgs_SubcommandAndRaw(t *testing.T) {
	cmd, args := ParseArgs([]string{"history", "show", "4f3a"})
	if cmd != CmdHistory {
		t.Fatalf("expected CmdHistory, got %v", cmd)
	}
	if args.Subcommand != "show" {
		t.Errorf("Subcommand = %q, want %q", args.Subcommand, "show")
	}
	if len(args.Raw) != 2 || args.Raw[0] != "show" || args.Raw[1] != "4f3a" {
		t.Errorf("Raw = %v", args.Raw)
	}
}

// =============================================================================
// ARG PARSER
// =============================================================================

func TestArgParser_Flags(t *testing.T) {
	parser := NewArgParser([]string{"export", "4f3a", "--format", "json", "--output=out.json", "--yes"})

	if parser.Subcommand() != "export" {
		t.Errorf("Subcommand = %q", parser.Subcommand())
	}
	if got := parser.Flag("format"); got != "json" {
		t.Errorf("Flag(format) = %q", got)
	}
	if got := parser.Flag("output"); got != "out.json" {
		t.Errorf("Flag(output) = %q", got)
	}
	if !parser.BoolFlag("yes") {
		t.Error("BoolFlag(yes) = false")
	}
	if parser.BoolFlag("no-such-flag") {
		t.Error("BoolFlag(no-such-flag) = true")
	}
}

func TestArgParser_FlagOrDefault(t *testing.T) {
	parser := NewArgParser([]string{"export", "4f3a"})

	if got := parser.FlagOrDefault("format", "md"); got != "md" {
		t.Errorf("FlagOrDefault = %q, want %q", got, "md")
	}
}

func TestArgParser_Positionals(t *testing.T) {
	parser := NewArgParser([]string{"rename", "4f3a", "TCP", "tuning", "notes"})

	if got := parser.Positional(1); got != "4f3a" {
		t.Errorf("Positional(1) = %q", got)
	}
	if got := parser.Positional(99); got != "" {
		t.Errorf("Positional(99) = %q, want empty", got)
	}
	if got := JoinPositional(parser, 2); got != "TCP tuning notes" {
		t.Errorf("JoinPositional = %q", got)
	}
	if got := parser.PositionalCount(); got != 5 {
		t.Errorf("PositionalCount = %d, want 5", got)
	}
}

func TestArgParser_ExplicitBool(t *testing.T) {
	parser := NewArgParser([]string{"--json=true", "--color=false"})

	if !parser.BoolFlag("json") {
		t.Error("BoolFlag(json) = false, want true")
	}
	if parser.BoolFlag("color") {
		t.Error("BoolFlag(color) = true, want false")
	}
	if !parser.HasFlag("color") {
		t.Error("HasFlag(color) = false")
	}
}
