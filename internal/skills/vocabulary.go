// Package skills detects skills from a static vocabulary in free text.
package skills

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrVocabularyLoad is returned when a skill list cannot be read or is empty.
var ErrVocabularyLoad = errors.New("skill vocabulary load failed")

// Vocabulary is an ordered list of lowercase skill names. Order is preserved by every
// operation so that matched and missing lists are deterministic.
type Vocabulary []string

// defaultSkills is used when no vocabulary file is configured.
var defaultSkills = Vocabulary{
	"python", "java", "c++", "javascript", "react", "node", "aws", "docker", "kubernetes",
	"sql", "nosql", "machine learning", "deep learning", "nlp", "pytorch", "tensorflow",
	"git", "ci/cd", "linux", "agile", "scrum", "project management", "communication",
}

// Default returns a copy of the built-in vocabulary.
func Default() Vocabulary {
	return append(Vocabulary(nil), defaultSkills...)
}

// Load reads a vocabulary file with one skill per line.
func Load(path string) (Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVocabularyLoad, err)
	}
	defer f.Close()
	vocab, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vocab, nil
}

// Parse reads one skill per line from r. Lines are trimmed and lowercased; blank lines and
// lines starting with '#' are skipped; repeated skills keep their first position.
func Parse(r io.Reader) (Vocabulary, error) {
	var vocab Vocabulary
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		skill := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if skill == "" || strings.HasPrefix(skill, "#") {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		seen[skill] = struct{}{}
		vocab = append(vocab, skill)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVocabularyLoad, err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("%w: no skills found", ErrVocabularyLoad)
	}
	return vocab, nil
}

// Set returns the vocabulary as a hash set.
func (v Vocabulary) Set() map[string]struct{} {
	set := make(map[string]struct{}, len(v))
	for _, s := range v {
		set[s] = struct{}{}
	}
	return set
}

// contains reports whether skill is in the vocabulary.
func (v Vocabulary) contains(skill string) bool {
	for _, s := range v {
		if s == skill {
			return true
		}
	}
	return false
}

// Without returns the entries of v that are not in other, in v's order.
func (v Vocabulary) Without(other Vocabulary) Vocabulary {
	exclude := other.Set()
	out := make(Vocabulary, 0, len(v))
	for _, s := range v {
		if _, ok := exclude[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// Intersect returns the entries of v that are also in other, in v's order.
func (v Vocabulary) Intersect(other Vocabulary) Vocabulary {
	include := other.Set()
	out := make(Vocabulary, 0, len(v))
	for _, s := range v {
		if _, ok := include[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
