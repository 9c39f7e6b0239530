package embedding

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxCharsPerWord = 100

// WordPieceTokenizer implements the uncased BERT tokenizer used by MiniLM-style
// sentence-transformers models: lowercasing, accent stripping, punctuation splitting and
// greedy longest-match-first WordPiece lookup against vocab.txt.
type WordPieceTokenizer struct {
	vocab map[string]int64
	unkID int64
	clsID int64
	sepID int64
}

// LoadWordPieceTokenizer reads a vocab.txt file (one token per line, line number is the ID).
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	return ReadWordPieceTokenizer(f)
}

// ReadWordPieceTokenizer parses vocab.txt content from r.
func ReadWordPieceTokenizer(r io.Reader) (*WordPieceTokenizer, error) {
	var tokens []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		tokens = append(tokens, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	return NewWordPieceTokenizer(tokens)
}

// NewWordPieceTokenizer builds a tokenizer where tokens[i] has ID i.
func NewWordPieceTokenizer(tokens []string) (*WordPieceTokenizer, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}
	vocab := make(map[string]int64, len(tokens))
	for i, tok := range tokens {
		if tok == "" {
			continue
		}
		if _, exists := vocab[tok]; !exists {
			vocab[tok] = int64(i)
		}
	}
	t := &WordPieceTokenizer{vocab: vocab}
	t.unkID = t.special("[UNK]", unkTokenID)
	t.clsID = t.special("[CLS]", clsTokenID)
	t.sepID = t.special("[SEP]", sepTokenID)
	return t, nil
}

func (t *WordPieceTokenizer) special(token string, fallback int64) int64 {
	if id, ok := t.vocab[token]; ok {
		return id
	}
	return fallback
}

// Tokenize converts text into padded BERT inputs of length maxTokens.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	var ids []int64
	for _, word := range basicTokenize(text) {
		ids = append(ids, t.wordPiece(word)...)
		if maxTokens > 0 && len(ids) >= maxTokens {
			break
		}
	}
	return packTokens(ids, maxTokens, t.clsID, t.sepID)
}

// pieces returns the WordPiece tokens for text without special tokens or padding.
func (t *WordPieceTokenizer) pieces(text string) []string {
	inverse := make(map[int64]string, len(t.vocab))
	for tok, id := range t.vocab {
		inverse[id] = tok
	}
	var out []string
	for _, word := range basicTokenize(text) {
		for _, id := range t.wordPiece(word) {
			if tok, ok := inverse[id]; ok {
				out = append(out, tok)
			} else {
				out = append(out, "[UNK]")
			}
		}
	}
	return out
}

func (t *WordPieceTokenizer) wordPiece(word string) []int64 {
	chars := []rune(word)
	if len(chars) > maxCharsPerWord {
		return []int64{t.unkID}
	}
	var ids []int64
	start := 0
	for start < len(chars) {
		end := len(chars)
		found := int64(-1)
		for start < end {
			sub := string(chars[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := t.vocab[sub]; ok {
				found = id
				break
			}
			end--
		}
		if found < 0 {
			return []int64{t.unkID}
		}
		ids = append(ids, found)
		start = end
	}
	return ids
}

// basicTokenize lowercases, strips accents and splits on whitespace and punctuation.
func basicTokenize(text string) []string {
	text = strings.ToLower(cleanText(text))
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripper, text); err == nil {
		text = stripped
	}

	var words []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			words = append(words, b.String())
			b.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case isPunctuation(r) || unicode.Is(unicode.Han, r):
			flush()
			words = append(words, string(r))
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return words
}

// cleanText drops NUL, replacement and control characters and maps whitespace to spaces.
func cleanText(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == 0 || r == unicode.ReplacementChar:
			return -1
		case r == '\t' || r == '\n' || r == '\r' || unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, text)
}

// isPunctuation treats all non-alphanumeric ASCII symbols as punctuation, as BERT does.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
