package events

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func activated(conv string, turn int, priorityID string) Event {
	ev := New(EventActivated, conv, turn)
	ev.PriorityID = priorityID
	ev.Effect = "request_data"
	ev.Missing = []string{"email"}
	return ev
}

func TestFileSink_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "events")
	sink, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink() error: %v", err)
	}
	if want := filepath.Join(dir, LogFilename); sink.Path() != want {
		t.Errorf("Path() = %q, want %q", sink.Path(), want)
	}

	written := []Event{activated("conv-1", 1, "priority_refund"), New(EventIdle, "conv-1", 2)}
	for _, ev := range written {
		if err := sink.WriteOne(ev); err != nil {
			t.Fatalf("WriteOne() error: %v", err)
		}
	}

	// Flushed per write: readable before Close.
	got, err := ReadLog(sink.Path(), Filter{})
	if err != nil {
		t.Fatalf("ReadLog() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read %d events, want 2", len(got))
	}
	if got[0].ID != written[0].ID || got[0].PriorityID != "priority_refund" || got[0].Missing[0] != "email" {
		t.Errorf("event[0] = %+v", got[0])
	}
	if got[1].Type != EventIdle {
		t.Errorf("event[1].Type = %q, want idle", got[1].Type)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if err := sink.WriteOne(New(EventIdle, "conv-1", 3)); err == nil {
		t.Error("WriteOne after Close should fail")
	}
}

func TestFileSink_Appends(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 2; i++ {
		sink, err := NewFileSink(dir)
		if err != nil {
			t.Fatal(err)
		}
		if err := sink.WriteOne(New(EventIdle, "conv-1", i)); err != nil {
			t.Fatal(err)
		}
		if err := sink.Close(); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ReadLog(filepath.Join(dir, LogFilename), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Turn != 1 || got[1].Turn != 2 {
		t.Errorf("reopened log should append, got %+v", got)
	}
}

func TestFileSink_ConcurrentWriters(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for turn := 1; turn <= 25; turn++ {
				if err := sink.WriteOne(New(EventIdle, "conv", turn)); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()

	got, err := ReadLog(sink.Path(), Filter{})
	if err != nil {
		t.Fatalf("interleaved writes corrupted the log: %v", err)
	}
	if len(got) != 200 {
		t.Errorf("read %d events, want 200", len(got))
	}
}

func TestFilter(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evs := []Event{
		{Type: EventActivated, ConversationID: "a", PriorityID: "priority_x", Timestamp: base},
		{Type: EventCompleted, ConversationID: "a", PriorityID: "priority_x", Timestamp: base.Add(time.Minute)},
		{Type: EventIdle, ConversationID: "b", Timestamp: base.Add(2 * time.Minute)},
		{Type: EventActivated, ConversationID: "b", PriorityID: "priority_y", Timestamp: base.Add(3 * time.Minute)},
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{name: "zero filter", filter: Filter{}, want: 4},
		{name: "by type", filter: Filter{Types: []EventType{EventActivated}}, want: 2},
		{name: "several types", filter: Filter{Types: []EventType{EventIdle, EventCompleted}}, want: 2},
		{name: "by conversation", filter: Filter{ConversationID: "b"}, want: 2},
		{name: "by priority", filter: Filter{PriorityID: "priority_x"}, want: 2},
		{name: "since", filter: Filter{Since: base.Add(2 * time.Minute)}, want: 2},
		{name: "combined", filter: Filter{Types: []EventType{EventActivated}, ConversationID: "a"}, want: 1},
		{name: "no match", filter: Filter{ConversationID: "zzz"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Apply(evs); len(got) != tt.want {
				t.Errorf("Apply() returned %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReadLog_Missing(t *testing.T) {
	got, err := ReadLog(filepath.Join(t.TempDir(), "nope.jsonl"), Filter{})
	if err != nil || got != nil {
		t.Errorf("ReadLog(missing) = %v, %v; want nil, nil", got, err)
	}
}

func TestReadLog_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), LogFilename)
	if err := os.WriteFile(path, []byte("{\"type\":\"idle\"}\n{not json\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadLog(path, Filter{}); err == nil {
		t.Error("expected error for corrupt log")
	}
}
