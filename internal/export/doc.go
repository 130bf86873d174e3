// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations to Markdown or JSON files.
//
//	exp, err := export.ForFormat("md", export.DefaultOptions())
//	path, err := export.ToFile(conv, exp, opts)
package export
