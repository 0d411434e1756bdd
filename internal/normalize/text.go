package normalize

import (
	"regexp"
	"strings"
)

var (
	wsRe  = regexp.MustCompile(`\s+`)
	tagRe = regexp.MustCompile(`<[^>]*>`)
)

// CollapseWhitespace trims s and folds internal whitespace runs (including
// the newlines the scraper leaves inside descriptions) into single spaces.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

// StripTags removes HTML tags from s. Descriptions extracted from saved
// listing pages occasionally carry inline markup.
func StripTags(s string) string {
	return tagRe.ReplaceAllString(s, "")
}

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace.
// Used to skip TrimSpace allocations in hot row paths.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	isSpace := func(b byte) bool {
		return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}
