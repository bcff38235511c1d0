// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the send/receive state machine for a single
// chat exchange.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/SAADAT-Abu/Lexi/internal/model"
)

var (
	// ErrSendInFlight is returned when SendMessage is called while a
	// previous send has not finished. Exactly one exchange runs at a time.
	ErrSendInFlight = errors.New("a message send is already in progress")

	// ErrEmptyMessage is returned for blank or whitespace-only input.
	ErrEmptyMessage = errors.New("message content is empty")
)

// Completer performs one chat completion round trip. Satisfied by
// *openrouter.Client.
type Completer interface {
	Complete(ctx context.Context, modelID string, messages []model.Message) (model.Message, error)
}

// Snapshot is an observable view of the controller's state. Messages is
// a copy; mutating it does not affect the controller.
type Snapshot struct {
	Messages  []model.Message
	ModelID   string
	ModelName string
	Sending   bool
	LastError string
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives a single conversation's exchange loop: append the
// user's message, call the completion client with the full history, and
// apply the reply. It holds no durable state; callers mirror snapshots
// into the session store.
//
// The controller is either idle or sending. A failed exchange returns to
// idle with LastError set and the optimistic user message retained, so
// the user sees what they sent even when the reply never came.
//
// Replies are tagged with a generation counter when the send starts.
// SetModel, LoadMessages, and Reset bump the generation, so a reply that
// arrives after any of them is recognized as stale and discarded instead
// of corrupting the new state.
type Controller struct {
	mu sync.Mutex

	client    Completer
	modelID   string
	modelName string

	messages  []model.Message
	sending   bool
	lastError string

	// generation invalidates in-flight sends; bumped by every operation
	// that makes a pending reply meaningless.
	generation uint64

	onChange func(Snapshot)
}

// NewController creates an idle controller bound to the given model.
func NewController(client Completer, modelID, modelName string) *Controller {
	return &Controller{
		client:    client,
		modelID:   modelID,
		modelName: modelName,
	}
}

// OnChange registers the observer called after every state transition.
// The callback runs on the mutating goroutine without the controller
// lock held, and receives a snapshot it may keep.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// snapshotLocked builds a snapshot. Caller must hold mu.
func (c *Controller) snapshotLocked() Snapshot {
	msgs := make([]model.Message, len(c.messages))
	copy(msgs, c.messages)
	return Snapshot{
		Messages:  msgs,
		ModelID:   c.modelID,
		ModelName: c.modelName,
		Sending:   c.sending,
		LastError: c.lastError,
	}
}

// notify invokes the observer outside the lock.
func (c *Controller) notify(snap Snapshot, fn func(Snapshot)) {
	if fn != nil {
		fn(snap)
	}
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

// SetModel rebinds the conversation to a different model. The message
// history is kept; any in-flight reply is invalidated and the controller
// returns to idle.
func (c *Controller) SetModel(modelID, modelName string) {
	c.mu.Lock()
	c.modelID = modelID
	c.modelName = modelName
	c.generation++
	c.sending = false
	snap, fn := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	c.notify(snap, fn)
}

// LoadMessages replaces the history wholesale, typically when resuming a
// persisted session. The controller returns to idle with no error; any
// in-flight reply is invalidated.
func (c *Controller) LoadMessages(messages []model.Message) {
	msgs := make([]model.Message, len(messages))
	copy(msgs, messages)

	c.mu.Lock()
	c.messages = msgs
	c.sending = false
	c.lastError = ""
	c.generation++
	snap, fn := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	c.notify(snap, fn)
}

// Reset clears the conversation, returning to an empty idle state.
func (c *Controller) Reset() {
	c.LoadMessages(nil)
}

// Model returns the current model binding.
func (c *Controller) Model() (modelID, modelName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelID, c.modelName
}

// =============================================================================
// SENDING
// =============================================================================

// SendMessage runs one exchange: append the user's message, call the
// completion client with the full history, and apply the reply.
//
// While a send is in flight further calls fail fast with ErrSendInFlight;
// the conversation history can only grow one exchange at a time. The
// optimistic user message is appended and observable before the network
// call starts. On failure the error is recorded in the snapshot and also
// returned.
func (c *Controller) SendMessage(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	c.messages = append(c.messages, model.NewUserMessage(content))
	c.sending = true
	c.lastError = ""
	gen := c.generation
	modelID := c.modelID

	history := make([]model.Message, len(c.messages))
	copy(history, c.messages)

	snap, fn := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	c.notify(snap, fn)

	reply, err := c.client.Complete(ctx, modelID, history)

	c.mu.Lock()
	if gen != c.generation {
		// The conversation moved on while we were waiting; this reply
		// belongs to a previous life of the controller. Drop it.
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.lastError = err.Error()
	} else {
		c.messages = append(c.messages, reply)
	}
	c.sending = false
	snap, fn = c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	c.notify(snap, fn)
	return err
}
