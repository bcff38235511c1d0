// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Title and preview truncation limits, in runes.
const (
	// MaxTitleRunes is the maximum length of an auto-generated session title.
	MaxTitleRunes = 30

	// PreviewRunes is the length of the session preview snippet.
	PreviewRunes = 50
)

// DefaultPreview is shown for sessions that have no messages yet.
const DefaultPreview = "New conversation"

// =============================================================================
// CHAT SESSION TYPE
// =============================================================================

// ChatSession holds a complete chat exchange with history and metadata.
//
// The ID is assigned at creation and never changes. UpdatedAt is refreshed
// on every mutation of the message list and is monotonically non-decreasing,
// so it is safe to sort listings by it.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ModelID   string    `json:"model_id"`
	ModelName string    `json:"model_name"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewChatSession creates a new session bound to the given model.
// CreatedAt and UpdatedAt are both set to the current time.
func NewChatSession(title, modelID, modelName string) ChatSession {
	now := time.Now()
	return ChatSession{
		ID:        uuid.New().String(),
		Title:     title,
		ModelID:   modelID,
		ModelName: modelName,
		Messages:  make([]Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TitleFromContent derives a session title from the first user message.
// The title is truncated to MaxTitleRunes with an ellipsis appended only
// when the content was actually longer.
// UNICODE: Rune-based truncation so multi-byte characters are never split.
func TitleFromContent(content string) string {
	runes := []rune(content)
	if len(runes) <= MaxTitleRunes {
		return content
	}
	return string(runes[:MaxTitleRunes]) + "..."
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message and refreshes UpdatedAt.
func (s *ChatSession) AddMessage(msg Message) {
	s.Messages = append(s.Messages, msg)
	s.Touch()
}

// SetMessages replaces the message list wholesale and refreshes UpdatedAt.
func (s *ChatSession) SetMessages(messages []Message) {
	s.Messages = messages
	s.Touch()
}

// Touch refreshes UpdatedAt. The timestamp strictly increases on every
// call, even if the wall clock stalls or moves backwards.
func (s *ChatSession) Touch() {
	now := time.Now()
	if !now.After(s.UpdatedAt) {
		now = s.UpdatedAt.Add(time.Nanosecond)
	}
	s.UpdatedAt = now
}

// LastMessage returns the most recent message and true, or a zero Message
// and false if the session is empty.
func (s *ChatSession) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// FirstUserMessage returns the first user message and true, or a zero
// Message and false if there is none.
func (s *ChatSession) FirstUserMessage() (Message, bool) {
	for _, msg := range s.Messages {
		if msg.Role == RoleUser {
			return msg, true
		}
	}
	return Message{}, false
}

// MessageCount returns the number of messages.
func (s *ChatSession) MessageCount() int {
	return len(s.Messages)
}

// IsEmpty returns true if there are no messages.
func (s *ChatSession) IsEmpty() bool {
	return len(s.Messages) == 0
}

// =============================================================================
// DISPLAY HELPERS
// =============================================================================

// Preview returns a short snippet of the most recent message for listings.
// The snippet is the first PreviewRunes runes of the last message with an
// ellipsis appended. Empty sessions yield DefaultPreview.
func (s *ChatSession) Preview() string {
	last, ok := s.LastMessage()
	if !ok {
		return DefaultPreview
	}
	runes := []rune(last.Content)
	if len(runes) > PreviewRunes {
		runes = runes[:PreviewRunes]
	}
	return string(runes) + "..."
}

// GetTitle returns the session title or a default for untitled sessions.
func (s *ChatSession) GetTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return DefaultPreview
}

// FormattedDate returns the last-updated date for listings, e.g. "Jan 02, 2006".
func (s *ChatSession) FormattedDate() string {
	return s.UpdatedAt.Format("Jan 02, 2006")
}

// FormattedTime returns the last-updated time of day, e.g. "15:04".
func (s *ChatSession) FormattedTime() string {
	return s.UpdatedAt.Format("15:04")
}

// Clone creates a deep copy of the session. Messages are value types so
// copying the slice is sufficient.
func (s *ChatSession) Clone() ChatSession {
	clone := *s
	clone.Messages = make([]Message, len(s.Messages))
	copy(clone.Messages, s.Messages)
	return clone
}

// EstimateTokens estimates the total token count of the session history.
func (s *ChatSession) EstimateTokens() int {
	total := 0
	for _, msg := range s.Messages {
		total += msg.EstimateTokens()
		// Overhead for message structure (~4 tokens per message)
		total += 4
	}
	return total
}
