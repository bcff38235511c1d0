// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the lexi command-line interface.
//
// The package is organized as one handler per command (chat, ask,
// history, search, models, config, setup), all sharing an App that
// wires configuration, the settings store, the session store, the
// OpenRouter client and the optional search index together.
//
// Output conventions:
//   - Styled output only when stdout is a TTY and colors are enabled
//     (NO_COLOR is honored).
//   - --json produces machine-readable output on stdout; status and
//     progress lines go to stderr.
//   - Piped stdin is treated as context for one-shot questions.
package cli
