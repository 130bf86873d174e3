// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the store, the
// orchestrator and both ends of the transport.
//
// # Key Types
//
//   - Conversation: named, ordered log of messages with a stable ID
//   - Message: single message with role, text and language tag
//   - Role: closed set of message roles (user, assistant)
//   - Language: closed set of supported languages
//   - Turn: role/text pair sent to the model gateway as history
//   - State: immutable snapshot of the whole application state
//
// # Usage
//
//	conv := model.NewConversation("New Chat")
//	conv.Messages = append(conv.Messages, model.NewUserMessage("Hello", model.English))
//	history := conv.History()
package model
