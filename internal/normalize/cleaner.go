// Package normalize turns raw feed items into persisted articles: text
// cleanup, timestamp repair, content fingerprinting, entity extraction and
// the exact-duplicate short-circuit.
package normalize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// CleanText strips HTML markup, unescapes entities and collapses whitespace.
// Feed summaries routinely arrive as HTML fragments; downstream hashing and
// similarity scoring need plain text.
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)

	// Sanitize escapes the text it keeps, so unescape can surface entities
	// a second time ("&amp;amp;" in the wild). One more pass settles it.
	s = html.UnescapeString(s)

	return strings.Join(strings.Fields(s), " ")
}
