// Package matcher provides the default trigger matcher: plain phrase
// matching with case and diacritic folding.
package matcher

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Mode selects how a phrase must appear in the text.
type Mode string

const (
	// ModeWord matches a phrase only on whole-word boundaries.
	ModeWord Mode = "word"
	// ModeSubstring matches a phrase anywhere, even inside a word.
	ModeSubstring Mode = "substring"
)

// ParseMode converts a config value into a Mode. Empty means ModeWord.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeWord:
		return ModeWord, nil
	case ModeSubstring:
		return ModeSubstring, nil
	}
	return "", fmt.Errorf("unknown matcher mode %q (want word or substring)", s)
}

// Phrase matches user text against trigger phrases.
type Phrase struct {
	Mode Mode
}

// New returns a phrase matcher in the given mode.
func New(mode Mode) *Phrase {
	return &Phrase{Mode: mode}
}

// Match reports whether any phrase occurs in text. Blank phrases never match.
func (m *Phrase) Match(ctx context.Context, text string, phrases []string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	folded := Fold(text)
	var words []string
	if m.Mode != ModeSubstring {
		words = Words(folded)
	}

	for _, ph := range phrases {
		fp := Fold(ph)
		if strings.TrimSpace(fp) == "" {
			continue
		}
		if m.Mode == ModeSubstring {
			if strings.Contains(folded, strings.TrimSpace(fp)) {
				return true, nil
			}
			continue
		}
		if containsSeq(words, Words(fp)) {
			return true, nil
		}
	}
	return false, nil
}

// Fold removes diacritics and applies Unicode case folding.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Words splits s into runs of letters and digits.
func Words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsSeq(words, seq []string) bool {
	if len(seq) == 0 || len(seq) > len(words) {
		return false
	}
outer:
	for i := 0; i+len(seq) <= len(words); i++ {
		for j, w := range seq {
			if words[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}
