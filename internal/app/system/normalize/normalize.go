// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lower-cases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses internal runs of spaces.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NameCI returns the folded form of a name used for case- and
// diacritic-insensitive sorting and lookups.
func NameCI(s string) string {
	return text.Fold(Name(s))
}

// TagName trims a tag and collapses whitespace. Tags keep their case for
// display; uniqueness is checked on the folded form.
func TagName(s string) string {
	return Name(s)
}

// SplitList splits a comma-separated form value into trimmed, non-empty,
// de-duplicated entries, keeping first-seen order.
func SplitList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		p := strings.TrimSpace(part)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
