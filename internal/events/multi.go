package events

import "errors"

// Writer accepts events one at a time.
type Writer interface {
	WriteOne(event Event) error
}

// Multi fans an event out to every writer. Each writer sees the event even
// when an earlier one fails; the failures are joined.
type Multi []Writer

// WriteOne writes the event to every writer.
func (m Multi) WriteOne(event Event) error {
	var errs []error
	for _, w := range m {
		if err := w.WriteOne(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
