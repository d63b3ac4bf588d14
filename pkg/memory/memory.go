// Package memory keeps per-user conversation history in a bounded
// sliding window. Oldest turns are discarded first once the window fills.
package memory

import (
	"sync"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/llms"
)

// ConversationMemory stores the most recent messages for each user.
// WindowSize counts individual messages, so a window of 20 holds the
// last 10 user/assistant exchanges.
type ConversationMemory struct {
	mu         sync.RWMutex
	windowSize int
	histories  map[string][]llms.Message
}

func NewConversationMemory(windowSize int) *ConversationMemory {
	if windowSize <= 0 {
		windowSize = 20
	}
	return &ConversationMemory{
		windowSize: windowSize,
		histories:  make(map[string][]llms.Message),
	}
}

// Append records one completed exchange for the user and trims the
// window from the front.
func (m *ConversationMemory) Append(userID string, userTurn, assistantTurn llms.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.histories[userID], userTurn, assistantTurn)
	if overflow := len(history) - m.windowSize; overflow > 0 {
		history = history[overflow:]
	}
	m.histories[userID] = history
}

// History returns a copy of the user's window, oldest first.
func (m *ConversationMemory) History(userID string) []llms.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.histories[userID]
	if len(history) == 0 {
		return nil
	}
	out := make([]llms.Message, len(history))
	copy(out, history)
	return out
}

// Len reports how many messages are stored for the user.
func (m *ConversationMemory) Len(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.histories[userID])
}

// Clear forgets one user's history.
func (m *ConversationMemory) Clear(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.histories, userID)
}

// ClearAll forgets every user's history.
func (m *ConversationMemory) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories = make(map[string][]llms.Message)
}
