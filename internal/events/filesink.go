package events

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogFilename is the name of the event log inside the events directory.
const LogFilename = "events.jsonl"

// FileSink appends events to a JSONL log, one event per line. Every write is
// flushed so a crashed process loses at most the event being written.
// It is safe for concurrent use.
type FileSink struct {
	mu   sync.Mutex
	path string
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

// NewFileSink opens (or creates) dir/events.jsonl for appending.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create events directory: %w", err)
	}
	path := filepath.Join(dir, LogFilename)

	// Events name conversations and the fields they are missing.
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	buf := bufio.NewWriter(file)
	return &FileSink{path: path, file: file, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// WriteOne appends one event.
func (s *FileSink) WriteOne(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return errors.New("event log is closed")
	}
	if err := s.enc.Encode(ev); err != nil {
		return fmt.Errorf("failed to encode event %s: %w", ev.ID, err)
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush event log: %w", err)
	}
	return nil
}

// Close closes the log. Closing twice is a no-op.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	flushErr := s.buf.Flush()
	closeErr := s.file.Close()
	s.file = nil
	if flushErr != nil {
		return fmt.Errorf("failed to flush event log: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close event log: %w", closeErr)
	}
	return nil
}

// Path returns the log file path.
func (s *FileSink) Path() string {
	return s.path
}

// Filter selects events. Zero-valued fields match everything.
type Filter struct {
	Types          []EventType
	ConversationID string
	PriorityID     string
	Since          time.Time
}

// Match reports whether ev passes the filter.
func (f Filter) Match(ev Event) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if ev.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ConversationID != "" && ev.ConversationID != f.ConversationID {
		return false
	}
	if f.PriorityID != "" && ev.PriorityID != f.PriorityID {
		return false
	}
	if !f.Since.IsZero() && ev.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Apply returns the events that pass the filter, in order.
func (f Filter) Apply(evs []Event) []Event {
	var out []Event
	for _, ev := range evs {
		if f.Match(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// ReadLog reads the event log at path and returns the events passing f.
// A missing log reads as empty.
func ReadLog(path string, f Filter) ([]Event, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer func() { _ = file.Close() }()

	var out []Event
	dec := json.NewDecoder(bufio.NewReader(file))
	for n := 1; ; n++ {
		var ev Event
		err := dec.Decode(&ev)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode event %d in %s: %w", n, path, err)
		}
		if f.Match(ev) {
			out = append(out, ev)
		}
	}
}
