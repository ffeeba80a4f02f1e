package events

import (
	"errors"
	"testing"
)

func TestValidEventTypes(t *testing.T) {
	types := ValidEventTypes()
	if len(types) == 0 {
		t.Error("expected at least one valid event type")
	}

	expectedTypes := []EventType{EventActivated, EventIdle, EventCompleted, EventFailed}
	for _, expected := range expectedTypes {
		found := false
		for _, actual := range types {
			if actual == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected type %q not found in ValidEventTypes()", expected)
		}
	}
}

func TestIsValidEventType(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"activated", true},
		{"idle", true},
		{"completed", true},
		{"failed", true},
		{"invalid", false},
		{"", false},
		{"ACTIVATED", false}, // case sensitive
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			result := IsValidEventType(tc.input)
			if result != tc.expected {
				t.Errorf("IsValidEventType(%q) = %v, want %v", tc.input, result, tc.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	e := New(EventActivated, "conv-1", 3)
	if e.ID == "" {
		t.Error("expected generated id")
	}
	if e.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
	if e.ConversationID != "conv-1" || e.Turn != 3 || e.Type != EventActivated {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.WriteOne(Event{Type: EventIdle})
	_ = r.WriteOne(Event{Type: EventActivated})

	got := r.Events()
	if len(got) != 2 || got[1].Type != EventActivated {
		t.Errorf("Events() = %+v", got)
	}
}

type failingWriter struct{ err error }

func (f failingWriter) WriteOne(Event) error { return f.err }

func TestMulti_WritesToAll(t *testing.T) {
	var a, b Recorder
	boom := errors.New("boom")
	m := Multi{&a, failingWriter{err: boom}, &b}

	err := m.WriteOne(New(EventIdle, "conv-1", 1))
	if !errors.Is(err, boom) {
		t.Errorf("WriteOne() error = %v, want boom", err)
	}
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("every writer should receive the event: a=%d b=%d", len(a.Events()), len(b.Events()))
	}
}
