package priority

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// unnamedSlug is used when a name has no alphanumeric content.
const unnamedSlug = "unnamed"

// GenerateID derives a priority id from a display name.
// It is called once at creation; renaming never regenerates the id.
func GenerateID(name string) string {
	return IDPrefix + Slugify(name)
}

// Slugify lowercases s, strips diacritics, drops anything that is not an
// ASCII letter, digit or whitespace and joins the remaining words with "_".
func Slugify(s string) string {
	// Chains keep per-call state, so one is built for each call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	slug := strings.Join(strings.Fields(b.String()), "_")
	if slug == "" {
		return unnamedSlug
	}
	return slug
}
