//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/resumerank/pkg/utils"
)

// ONNXEmbedder runs a sentence-transformers model through ONNX Runtime. It requires CGO and
// the onnxruntime shared library. Inputs are processed in fixed-size batches.
type ONNXEmbedder struct {
	session   *ort.AdvancedSession
	cfg       ONNXConfig
	cache     *EmbeddingCache
	tokenizer Tokenizer
	// Pre-allocated tensors for Run(); input data is overwritten per batch.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder loads the model at cfg.ModelPath. The ONNX environment is initialized on
// first use.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	cfg = cfg.withDefaults()
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	batch, seq, dims := int64(cfg.BatchSize), int64(cfg.MaxTokens), int64(cfg.Dimensions)
	var created []interface{ Destroy() error }
	cleanup := func() {
		for _, t := range created {
			_ = t.Destroy()
		}
	}

	newInput := func(name string) (*ort.Tensor[int64], error) {
		t, err := ort.NewTensor(ort.NewShape(batch, seq), make([]int64, batch*seq))
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to create %s tensor: %w", name, err)
		}
		created = append(created, t)
		return t, nil
	}
	inputIDsTensor, err := newInput("input_ids")
	if err != nil {
		return nil, err
	}
	attentionMaskTensor, err := newInput("attention_mask")
	if err != nil {
		return nil, err
	}
	tokenTypeIDsTensor, err := newInput("token_type_ids")
	if err != nil {
		return nil, err
	}

	outputShape := ort.NewShape(batch, seq, dims)
	if cfg.Pooling == PoolingNone {
		outputShape = ort.NewShape(batch, dims)
	}
	outputTensor, err := ort.NewTensor(outputShape, make([]float32, outputShape.FlattenedSize()))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	created = append(created, outputTensor)

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXEmbedder{
		session:             session,
		cfg:                 cfg,
		cache:               NewEmbeddingCache(cfg.CacheSize),
		tokenizer:           cfg.Tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Embed returns the embedding for text, using cache when available.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in order, running uncached texts through the model in batches.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var pending []int
	for i, text := range texts {
		if cached, ok := e.cache.Get(text); ok {
			out[i] = cached
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return out, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("embedder is closed")
	}
	for start := 0; start < len(pending); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(pending))
		if err := e.runBatch(texts, pending[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// runBatch fills the input tensors for the texts at indexes group and writes pooled,
// normalised vectors into out. Unused batch rows are fed an empty text and discarded.
func (e *ONNXEmbedder) runBatch(texts []string, group []int, out [][]float32) error {
	seq, dims := e.cfg.MaxTokens, e.cfg.Dimensions
	ids := e.inputIDsTensor.GetData()
	mask := e.attentionMaskTensor.GetData()
	types := e.tokenTypeIDsTensor.GetData()

	for row := 0; row < e.cfg.BatchSize; row++ {
		text := ""
		if row < len(group) {
			text = texts[group[row]]
		}
		rowIDs, rowMask, rowTypes := e.tokenizer.Tokenize(text, seq)
		copy(ids[row*seq:(row+1)*seq], rowIDs)
		copy(mask[row*seq:(row+1)*seq], rowMask)
		copy(types[row*seq:(row+1)*seq], rowTypes)
	}

	if err := e.session.Run(); err != nil {
		return fmt.Errorf("inference failed: %w", err)
	}

	data := e.outputTensor.GetData()
	for row, idx := range group {
		var vec []float32
		if e.cfg.Pooling == PoolingNone {
			vec = make([]float32, dims)
			copy(vec, data[row*dims:(row+1)*dims])
		} else {
			vec = meanPool(data[row*seq*dims:(row+1)*seq*dims], mask[row*seq:(row+1)*seq], dims)
		}
		utils.NormalizeL2(vec)
		e.cache.Set(texts[idx], vec)
		out[idx] = vec
	}
	return nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.cfg.Dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor = nil, nil, nil
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
