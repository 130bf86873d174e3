// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for a local Ollama server.
//
// Only the endpoints lumen needs are covered: a health check, the model
// list, and /api/chat in both buffered and streaming form. Streaming
// responses are newline-delimited JSON objects; each carries a piece of the
// assistant message and the last one has done=true.
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{DefaultModel: "llama3.2"})
//	err := client.ChatStream(ctx, "", []ollama.Message{
//	    ollama.NewSystemMessage("Respond in French."),
//	    ollama.NewUserMessage("Hello"),
//	}, nil, func(chunk ollama.StreamChunk) error {
//	    fmt.Print(chunk.Content)
//	    return nil
//	})
package ollama
