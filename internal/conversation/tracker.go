// Package conversation holds per-conversation evaluation state: the data
// learned so far and which priorities have completed. Nothing here is shared
// between conversations.
package conversation

import "sync"

// Tracker records which priorities completed in one conversation.
// The selector consults it for execute-once priorities; dependency checks
// read the same set ("completed at any point in this conversation").
type Tracker struct {
	mu        sync.RWMutex
	completed map[string]bool
	order     []string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{completed: make(map[string]bool)}
}

// MarkCompleted records a completion. Marking twice has no further effect.
func (t *Tracker) MarkCompleted(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed[id] {
		return
	}
	t.completed[id] = true
	t.order = append(t.order, id)
}

// IsUsed reports whether id has completed in this conversation.
func (t *Tracker) IsUsed(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completed[id]
}

// Completed returns a copy of the completed set.
func (t *Tracker) Completed() map[string]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]bool, len(t.completed))
	for id := range t.completed {
		out[id] = true
	}
	return out
}

// History returns completed ids in completion order.
func (t *Tracker) History() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}

// Reset forgets every completion.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed = make(map[string]bool)
	t.order = nil
}
