// Package fields is the catalog of well-known required-data keys.
package fields

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed fields.yaml
var embeddedFields string

// Field describes one well-known data key.
type Field struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Kind  string `yaml:"kind"`
}

type manifest struct {
	Fields []Field `yaml:"fields"`
}

var (
	loadOnce sync.Once
	all      []Field
	byKey    map[string]Field
	loadErr  error
)

func load() {
	var m manifest
	if err := yaml.Unmarshal([]byte(embeddedFields), &m); err != nil {
		loadErr = fmt.Errorf("failed to parse fields catalog: %w", err)
		return
	}
	byKey = make(map[string]Field, len(m.Fields))
	for _, f := range m.Fields {
		if _, dup := byKey[f.Key]; dup {
			loadErr = fmt.Errorf("fields catalog: duplicate key %q", f.Key)
			return
		}
		byKey[f.Key] = f
	}
	all = m.Fields
}

// All returns the catalog in declaration order.
func All() ([]Field, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	return append([]Field(nil), all...), nil
}

// Lookup returns the field with the given key.
func Lookup(key string) (Field, bool) {
	loadOnce.Do(load)
	f, ok := byKey[key]
	return f, ok
}

// IsCommon reports whether key is a well-known field.
func IsCommon(key string) bool {
	_, ok := Lookup(key)
	return ok
}

// Label returns the display label for key, or key itself when unknown.
func Label(key string) string {
	if f, ok := Lookup(key); ok {
		return f.Label
	}
	return key
}

// Unknown returns the keys that are not in the catalog, in input order.
func Unknown(keys []string) []string {
	var out []string
	for _, k := range keys {
		if !IsCommon(k) {
			out = append(out, k)
		}
	}
	return out
}
