// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the souq-assist command line.
//
// The command tree is built with cobra:
//
//	souq-assist              full-screen chat (line mode when piped)
//	souq-assist chat         full-screen chat, optionally --resume
//	souq-assist ask          one question, plain or --json output
//	souq-assist repl         line-by-line chat with input history
//	souq-assist history      list, show, export, delete, clear
//	souq-assist session      show, login, logout
//	souq-assist serve        local scripted chat endpoint
//	souq-assist config       show, path, init, get, set
//
// Commands return errors instead of printing them. Execute displays the
// error once and maps it to an exit code (see GetExitCode).
package cli
