package embedding

import (
	"strings"
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths = %d/%d/%d, want 10", len(ids), len(attn), len(types))
	}
	if ids[0] != 101 {
		t.Errorf("expected CLS 101, got %d", ids[0])
	}
	if ids[3] != 102 {
		t.Errorf("expected SEP 102 at position 3, got %d", ids[3])
	}
	var active int
	for _, m := range attn {
		active += int(m)
	}
	if active != 4 {
		t.Errorf("attention mask covers %d tokens, want 4", active)
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize(strings.Repeat("word ", 50), 8)
	if len(ids) != 8 {
		t.Fatalf("len(ids) = %d, want 8", len(ids))
	}
	if ids[7] != 102 || attn[7] != 1 {
		t.Errorf("last position = %d (mask %d), want SEP", ids[7], attn[7])
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a  b\n\tc  ")
	if len(words) != 3 {
		t.Errorf("expected 3 words, got %v", words)
	}
	if SplitWords("") != nil {
		t.Error("empty string should return nil")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == HashString("abd") {
		t.Error("different strings should hash differently")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}
