// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the chat gateway over HTTP.
//
// # Endpoints
//
//   - POST /api/sendMessage   - Stream the reply to a conversation history
//   - POST /api/generateTitle - Derive a title from the first exchange
//   - GET  /health            - Health check
//   - GET  /stats             - Usage counters
//
// sendMessage answers with a chunked text/plain body carrying the raw reply
// text. Validation failures are 400 responses with a JSON body of the form
// {"error": "..."}; model failures before the first fragment are 500
// responses. A model failure mid-reply aborts the connection.
//
// # Usage
//
//	srv := server.New(gateway.New(p), title.New(p), server.WithAddr(":8787"))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
