// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce sync.Once
	strict     *bluemonday.Policy
)

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// Text strips every HTML element from user input and returns plain text.
// Spot titles, descriptions, map names and tag names go through this
// before they are stored. Entities produced by the policy are unescaped
// so the stored value is what the user typed, minus markup.
func Text(s string) string {
	if s == "" {
		return ""
	}
	cleaned := strictPolicy().Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// IsPlainText reports whether s contains no tag-like markup.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<") || !strings.Contains(s, ">")
}
