// Package events records what the engine decided on each conversation turn.
// Events are appended to a JSONL file for auditing and replay analysis.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the category of an engine event.
type EventType string

const (
	// EventActivated is emitted when a priority is activated for a turn.
	EventActivated EventType = "activated"
	// EventIdle is emitted when a turn ends with no activation.
	EventIdle EventType = "idle"
	// EventCompleted is emitted when the caller reports a priority completed.
	EventCompleted EventType = "completed"
	// EventFailed is emitted when a capability failure aborts a turn.
	EventFailed EventType = "failed"
)

// Event is one engine decision.
type Event struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	AgentID        string    `json:"agent_id,omitempty"`
	ConversationID string    `json:"conversation_id"`
	Turn           int       `json:"turn"`
	Type           EventType `json:"type"`

	// PriorityID is the activated or completed priority.
	PriorityID string `json:"priority_id,omitempty"`

	// Effect is the bound effect kind (request_data, run_task, run_inline, none).
	Effect string `json:"effect,omitempty"`

	// Triggered lists the priorities whose triggers fired this turn.
	Triggered []string `json:"triggered,omitempty"`

	// Missing lists the required fields still unknown at activation.
	Missing []string `json:"missing,omitempty"`

	TaskID string `json:"task_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// New creates an event with a fresh id and the current time.
func New(t EventType, conversationID string, turn int) Event {
	return Event{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UTC(),
		ConversationID: conversationID,
		Turn:           turn,
		Type:           t,
	}
}

// ValidEventTypes returns all valid event type values.
func ValidEventTypes() []EventType {
	return []EventType{
		EventActivated,
		EventIdle,
		EventCompleted,
		EventFailed,
	}
}

// IsValidEventType checks if the given string is a valid event type.
func IsValidEventType(s string) bool {
	for _, t := range ValidEventTypes() {
		if string(t) == s {
			return true
		}
	}
	return false
}
