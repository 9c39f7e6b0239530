package embedding

import (
	"context"
	"strings"

	"github.com/hyperjump/resumerank/pkg/utils"
)

// HashEmbedder maps text to a fixed-size vector by signed feature hashing of word unigrams
// and bigrams. It needs no model files, so texts sharing vocabulary score closer than texts
// that do not. Used for offline runs and tests.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder creates a hashing embedder with the given dimension (384 if not positive).
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the L2-normalised hashed feature vector for text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	words := SplitWords(strings.ToLower(text))
	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, 0.5)
		}
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := HashString(feature)
	idx := int(h % uint32(e.dimensions))
	if (h>>16)&1 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// EmbedBatch embeds each text in order.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op.
func (e *HashEmbedder) Close() error { return nil }
