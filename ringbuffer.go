// ringbuffer.go: Fixed-capacity message store for live inspection
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import "sync"

const defaultRingCapacity = 256

// MessageBuffer keeps the N most recent messages for live-inspection
// consumers such as an in-game console overlay. Classic circular-index
// FIFO: once full, Add overwrites the oldest entry.
//
// One lock guards every operation; Snapshot returns a defensive copy in
// insertion order so callers can iterate it while producers keep adding.
type MessageBuffer struct {
	mu      sync.Mutex
	entries []Message
	pos     int
	full    bool
}

// NewMessageBuffer creates a buffer holding up to capacity messages.
// Non-positive capacities fall back to the default.
func NewMessageBuffer(capacity int) *MessageBuffer {
	if capacity <= 0 {
		capacity = defaultRingCapacity
	}
	return &MessageBuffer{entries: make([]Message, capacity)}
}

// Add stores a message, evicting the oldest once the buffer is full.
func (b *MessageBuffer) Add(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.pos] = msg
	b.pos = (b.pos + 1) % len(b.entries)
	if b.pos == 0 {
		b.full = true
	}
}

// Snapshot returns the buffered messages, oldest first.
func (b *MessageBuffer) Snapshot() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		out := make([]Message, b.pos)
		copy(out, b.entries[:b.pos])
		return out
	}
	out := make([]Message, 0, len(b.entries))
	out = append(out, b.entries[b.pos:]...)
	out = append(out, b.entries[:b.pos]...)
	return out
}

// Clear empties the buffer.
func (b *MessageBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = 0
	b.full = false
	for i := range b.entries {
		b.entries[i] = Message{}
	}
}

// Len returns the number of buffered messages.
func (b *MessageBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.entries)
	}
	return b.pos
}

// Cap returns the fixed capacity.
func (b *MessageBuffer) Cap() int {
	return len(b.entries)
}

// Subscriber adapts the buffer to the Router's subscriber contract.
func (b *MessageBuffer) Subscriber() SubscriberFunc {
	return b.Add
}
