// Package embedding provides sentence embeddings via ONNX Runtime, a model-free hashing
// fallback, caching, and a lazily initialized Provider shared across ranking calls.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Pooling selects how token-level model output becomes one sentence vector.
type Pooling string

const (
	// PoolingMean averages token vectors weighted by the attention mask
	// (sentence-transformers models exported with last_hidden_state).
	PoolingMean Pooling = "mean"
	// PoolingNone reads an already pooled (batch, dimensions) output.
	PoolingNone Pooling = "none"
)

// ONNXConfig holds settings for NewONNXEmbedder.
type ONNXConfig struct {
	ModelPath         string
	SharedLibraryPath string
	OutputName        string
	Pooling           Pooling
	Dimensions        int
	MaxTokens         int
	BatchSize         int
	CacheSize         int
	// Tokenizer defaults to SimpleTokenizer when nil.
	Tokenizer Tokenizer
}

func (c ONNXConfig) withDefaults() ONNXConfig {
	if c.OutputName == "" {
		c.OutputName = "last_hidden_state"
	}
	if c.Pooling == "" {
		c.Pooling = PoolingMean
	}
	if c.Dimensions <= 0 {
		c.Dimensions = 384
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 256
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 16
	}
	if c.Tokenizer == nil {
		c.Tokenizer = &SimpleTokenizer{}
	}
	return c
}
