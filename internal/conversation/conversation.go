package conversation

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Conversation is the evaluation state of one conversation with an agent.
type Conversation struct {
	ID      string
	AgentID string

	mu    sync.RWMutex
	known   map[string]string
	turn    int
	pending *Pending

	tracker *Tracker
}

// New starts a conversation with a fresh random id.
func New(agentID string) *Conversation {
	return NewWithID(uuid.New().String(), agentID)
}

// NewWithID starts a conversation with a caller-chosen id.
func NewWithID(id, agentID string) *Conversation {
	return &Conversation{
		ID:      id,
		AgentID: agentID,
		known:   make(map[string]string),
		tracker: NewTracker(),
	}
}

// Tracker returns the conversation's completion tracker.
func (c *Conversation) Tracker() *Tracker {
	return c.tracker
}

// Remember records a known field value. An empty value still counts as known.
func (c *Conversation) Remember(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[key] = value
}

// Forget drops a field.
func (c *Conversation) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.known, key)
}

// Value returns a field value and whether it is known.
func (c *Conversation) Value(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.known[key]
	return v, ok
}

// Known returns the set of known field keys.
func (c *Conversation) Known() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]bool, len(c.known))
	for k := range c.known {
		out[k] = true
	}
	return out
}

// Values returns a copy of all known field values.
func (c *Conversation) Values() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.known))
	for k, v := range c.known {
		out[k] = v
	}
	return out
}

// Keys returns the known field keys sorted.
func (c *Conversation) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.known))
	for k := range c.known {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NextTurn advances and returns the 1-indexed turn counter.
func (c *Conversation) NextTurn() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turn++
	return c.turn
}

// Turn returns the number of turns evaluated so far.
func (c *Conversation) Turn() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.turn
}

// Pending is the activation the caller is acting on after the latest turn.
type Pending struct {
	PriorityID string
	// Missing lists the fields the activation asked for. While it is non-empty
	// the priority's own effect has not run and it cannot complete.
	Missing []string
}

// AwaitingData reports whether the activation only requested data.
func (p Pending) AwaitingData() bool {
	return len(p.Missing) > 0
}

// SetPending records the latest activation.
func (c *Conversation) SetPending(p Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.Missing = append([]string(nil), p.Missing...)
	c.pending = &p
}

// ClearPending forgets the latest activation.
func (c *Conversation) ClearPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}

// Pending returns the latest activation, if the last turn produced one that
// has not completed yet.
func (c *Conversation) Pending() (Pending, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pending == nil {
		return Pending{}, false
	}
	p := *c.pending
	p.Missing = append([]string(nil), p.Missing...)
	return p, true
}
