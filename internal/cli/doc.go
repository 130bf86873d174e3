// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the lumen command line.
//
// # Commands
//
//   - lumen / lumen chat: interactive chat screen
//   - lumen send [message]: send one message and stream the reply to stdout
//   - lumen serve: run the HTTP model gateway
//   - lumen conversations list|new|use|rename|show|delete
//   - lumen language [code]
//   - lumen config show|init|get|set|path|keys
//   - lumen version
//
// Every command accepts --json and prints a JSONResponse envelope instead
// of text. Exit codes are listed in errors.go.
//
// Commands that talk to a model build their collaborators through App:
// openStore loads persisted state, openClient picks the in-process or
// HTTP transport according to client.mode and wires the orchestrator.
package cli
