package conversation

import (
	"fmt"
	"sync"
)

// Manager keeps the live conversations of one process, keyed by id.
// Each conversation owns its state; the manager only indexes them.
type Manager struct {
	mu            sync.RWMutex
	agentID       string
	conversations map[string]*Conversation
}

// NewManager creates a manager for conversations with the given agent.
func NewManager(agentID string) *Manager {
	return &Manager{
		agentID:       agentID,
		conversations: make(map[string]*Conversation),
	}
}

// Start opens a new conversation. An empty id gets a generated one.
func (m *Manager) Start(id string) (*Conversation, error) {
	var c *Conversation
	if id == "" {
		c = New(m.agentID)
	} else {
		c = NewWithID(id, m.agentID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.conversations[c.ID]; exists {
		return nil, fmt.Errorf("conversation %s already started", c.ID)
	}
	m.conversations[c.ID] = c
	return c, nil
}

// Get returns a live conversation.
func (m *Manager) Get(id string) (*Conversation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	return c, ok
}

// End closes a conversation and discards its state.
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[id]; !ok {
		return false
	}
	delete(m.conversations, id)
	return true
}

// Len returns the number of live conversations.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations)
}
