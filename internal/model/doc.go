// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat sessions and their messages.
//
// # Key Types
//
//   - ChatSession: Container for a chat exchange with messages and metadata
//   - Message: Single message with role and content
//   - Role: Message role enumeration (user, assistant, system)
//
// # Usage
//
// Create a new session and append messages:
//
//	sess := model.NewChatSession(model.TitleFromContent("Hello!"), "openrouter/auto", "Auto")
//	sess.AddMessage(model.NewUserMessage("Hello!"))
//
// Sessions carry their own ordering key: UpdatedAt is refreshed on every
// message mutation and never moves backwards, so listings sort by it.
package model
