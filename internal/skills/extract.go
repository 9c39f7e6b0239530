package skills

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Extract returns the vocabulary entries present in text, in vocabulary order.
// Matching is case-insensitive and whole-word: an occurrence counts only when it is not
// preceded or followed by a letter, digit or underscore, so "java" does not match inside
// "javascript" while "c++" still matches in "c++, go". Duplicate entries are reported once.
// The result is never nil.
func Extract(text string, vocab Vocabulary) Vocabulary {
	found := make(Vocabulary, 0)
	if text == "" || len(vocab) == 0 {
		return found
	}
	lower := strings.ToLower(text)
	seen := make(map[string]struct{}, len(vocab))
	for _, skill := range vocab {
		skill = strings.ToLower(skill)
		if skill == "" {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		if containsWord(lower, skill) {
			seen[skill] = struct{}{}
			found = append(found, skill)
		}
	}
	return found
}

// containsWord reports whether word occurs in text delimited by non-word runes or the text edges.
func containsWord(text, word string) bool {
	offset := 0
	for offset <= len(text)-len(word) {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
