// Package session manages conversation state: the append-only message
// history, lossy-but-restorable compression of older messages, and token
// accounting used to decide when to compress.
package session

import "github.com/morgusai/orchestron/core"

// History is the ordered log of messages in one conversation. It is
// append-only and has a single writer (the orchestrator loop), so no
// locking is needed. Readers receive copies.
type History struct {
	messages []core.Message
}

// NewHistory creates an empty History, optionally seeded with messages.
func NewHistory(seed ...core.Message) *History {
	h := &History{}
	h.messages = append(h.messages, seed...)
	return h
}

// Append adds messages to the end of the log.
func (h *History) Append(msgs ...core.Message) {
	h.messages = append(h.messages, msgs...)
}

// Len returns the number of messages in the log.
func (h *History) Len() int { return len(h.messages) }

// Messages returns a copy of the log in order.
func (h *History) Messages() []core.Message {
	out := make([]core.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Replace swaps the log for a new one. Used after compression to install
// the retained tail.
func (h *History) Replace(msgs []core.Message) {
	h.messages = make([]core.Message, len(msgs))
	copy(h.messages, msgs)
}
