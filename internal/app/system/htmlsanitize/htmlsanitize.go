// Package htmlsanitize cleans user-supplied text before it is stored.
//
// Post bodies may carry a small set of formatting markup (bluemonday's UGC
// policy). Everything else a user types (group names, descriptions, request
// reasons, post titles) is plain text: all markup is stripped.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize returns s with unsafe elements and attributes removed.
// Formatting, lists, links, headings, quotes and code blocks survive.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// StripTags removes all markup and returns unescaped plain text.
// Entity-encoded markup is decoded and stripped again, so the result never
// contains a tag.
func StripTags(s string) string {
	out := s
	for i := 0; i < 3; i++ {
		out = html.UnescapeString(strict.Sanitize(out))
		if IsPlainText(out) {
			break
		}
	}
	return strings.TrimSpace(out)
}

// IsPlainText reports whether s contains no tag-like sequences.
func IsPlainText(s string) bool {
	lt := strings.Index(s, "<")
	if lt < 0 {
		return true
	}
	return !strings.Contains(s[lt:], ">")
}
