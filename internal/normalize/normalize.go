// Package normalize canonicalizes raw resume and job description text before scoring.
//
// Two paths exist. Text is the aggressive form fed to the embedder: lowercase, every rune
// outside [a-z0-9] and ASCII whitespace replaced by a space, whitespace collapsed, trimmed.
// Clean is the light form applied to extracted documents: lowercase, whitespace collapsed,
// trimmed, punctuation kept so that skill and experience patterns still match.
// Both are total and idempotent.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// Text lowercases s, strips non-alphanumeric characters and collapses whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	return collapse(s)
}

// Clean lowercases s and collapses all runs of whitespace into a single space.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	return collapse(strings.ToLower(s))
}

// collapse trims s and replaces each run of whitespace with one space.
func collapse(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	wasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteByte(' ')
				wasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		wasSpace = false
	}
	return b.String()
}
