// Package archive provides optional local persistence of the live
// messages a chat session observed, keyed by room. The client appends
// each normalized live message when an archive is configured; embedders
// read it back for transcript export or crash recovery.
package archive

import (
	"sync"

	"github.com/younivision/livechat-go/chat"
)

// Archive is the interface for archive backends.
type Archive interface {
	Append(roomID string, msg chat.Message)
	Recent(roomID string, n int) []chat.Message
	After(roomID, afterID string) []chat.Message
	Count(roomID string) int
	Clear(roomID string)
}

// Memory keeps up to maxSize messages per room in memory.
type Memory struct {
	mu      sync.RWMutex
	rooms   map[string][]chat.Message
	maxSize int
}

// NewMemory creates a memory archive retaining up to maxSize messages
// per room.
func NewMemory(maxSize int) *Memory {
	return &Memory{
		rooms:   make(map[string][]chat.Message),
		maxSize: maxSize,
	}
}

// Append adds a message to the room's archive, evicting the oldest
// entries past maxSize.
func (m *Memory) Append(roomID string, msg chat.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := append(m.rooms[roomID], msg)
	if len(msgs) > m.maxSize {
		msgs = msgs[len(msgs)-m.maxSize:]
	}
	m.rooms[roomID] = msgs
}

// Recent returns the last n archived messages for a room.
func (m *Memory) Recent(roomID string, n int) []chat.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.rooms[roomID]
	if len(msgs) == 0 {
		return nil
	}
	if n > len(msgs) {
		n = len(msgs)
	}
	result := make([]chat.Message, n)
	copy(result, msgs[len(msgs)-n:])
	return result
}

// After returns the messages archived after the one with the given
// canonical id. An empty or unknown id yields nil.
func (m *Memory) After(roomID, afterID string) []chat.Message {
	if afterID == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.rooms[roomID]
	for i := range msgs {
		if msgs[i].ID == afterID {
			result := make([]chat.Message, len(msgs)-i-1)
			copy(result, msgs[i+1:])
			return result
		}
	}
	return nil
}

// Count returns the number of archived messages for a room.
func (m *Memory) Count(roomID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[roomID])
}

// Clear drops all archived messages for a room.
func (m *Memory) Clear(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
}
