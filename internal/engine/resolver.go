package engine

import "github.com/andywolf/agenda/internal/priority"

// MissingData returns the required fields of p that are not yet known,
// in the order p declares them. A known field with an empty value counts
// as known.
func MissingData(p priority.Priority, known map[string]bool) []string {
	var missing []string
	for _, key := range p.RequiredData {
		if !known[key] {
			missing = append(missing, key)
		}
	}
	return missing
}
