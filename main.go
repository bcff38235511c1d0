// lexi - OpenRouter chat for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/SAADAT-Abu/Lexi/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate

	cmd, args := cli.Parse()

	// Version and help need no app wiring
	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	}

	app, err := cli.NewApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := run(app, cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(app *cli.App, cmd cli.Command, args cli.Args) error {
	// Everything except setup itself goes through the first-run wizard
	// once; chat triggers it inline so a bare "lexi" just works.
	switch cmd {
	case cli.CmdChat:
		return cli.HandleChat(app, args)
	case cli.CmdAsk:
		return cli.HandleAsk(app, args)
	case cli.CmdHistory:
		return cli.HandleHistory(app, args)
	case cli.CmdSearch:
		return cli.HandleSearch(app, args)
	case cli.CmdModels:
		return cli.HandleModels(app, args)
	case cli.CmdConfig:
		return cli.HandleConfig(app, args)
	case cli.CmdSetup:
		return cli.HandleSetup(app, args)
	default:
		cli.PrintUsage()
		return nil
	}
}
