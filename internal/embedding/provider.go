package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/resumerank/internal/vector"
)

// ErrModelUnavailable is returned when the embedding model cannot be loaded or fails to
// produce vectors. A failed load is remembered for the lifetime of the Provider.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Provider states reported by Status.
const (
	StatusNotLoaded   = "not_loaded"
	StatusReady       = "ready"
	StatusUnavailable = "unavailable"
)

// Factory constructs the underlying embedder. It is called at most once per Provider.
type Factory func() (Embedder, error)

// Provider is a process-wide handle to an embedding model. The model is loaded on first use;
// concurrent first callers block until loading completes and later calls read the cached
// handle without locking.
type Provider struct {
	factory Factory
	logger  *zap.Logger
	mu      sync.Mutex
	state   atomic.Pointer[providerState]
}

type providerState struct {
	embedder Embedder
	err      error
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger used to report model loading.
func WithLogger(logger *zap.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider returns a Provider that loads its model with factory on first use.
func NewProvider(factory Factory, opts ...ProviderOption) *Provider {
	p := &Provider{factory: factory, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewStaticProvider wraps an already constructed embedder.
func NewStaticProvider(e Embedder, opts ...ProviderOption) *Provider {
	return NewProvider(func() (Embedder, error) { return e, nil }, opts...)
}

func (p *Provider) load() (Embedder, error) {
	if s := p.state.Load(); s != nil {
		return s.embedder, s.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.state.Load(); s != nil {
		return s.embedder, s.err
	}

	start := time.Now()
	p.logger.Info("Loading embedding model")
	var s *providerState
	emb, err := p.factory()
	switch {
	case err != nil:
		s = &providerState{err: fmt.Errorf("%w: %w", ErrModelUnavailable, err)}
		p.logger.Error("Embedding model failed to load", zap.Error(err))
	case emb == nil:
		s = &providerState{err: fmt.Errorf("%w: factory returned no embedder", ErrModelUnavailable)}
		p.logger.Error("Embedding model failed to load", zap.Error(s.err))
	default:
		s = &providerState{embedder: emb}
		p.logger.Info("Embedding model loaded",
			zap.Int("dimensions", emb.Dimensions()),
			zap.Duration("duration", time.Since(start)))
	}
	p.state.Store(s)
	return s.embedder, s.err
}

// Embed returns one vector per text, in order. An empty input yields an empty result.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	emb, err := p.load()
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrModelUnavailable, len(vecs), len(texts))
	}
	dims := emb.Dimensions()
	for i, v := range vecs {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrModelUnavailable, i, len(v), dims)
		}
	}
	return vecs, nil
}

// Similarity returns the cosine similarity of a and b in [-1, 1].
func (p *Provider) Similarity(a, b []float32) (float64, error) {
	if _, err := p.load(); err != nil {
		return 0, err
	}
	return vector.Cosine(a, b), nil
}

// Dimensions loads the model if needed and returns its vector dimension.
func (p *Provider) Dimensions() (int, error) {
	emb, err := p.load()
	if err != nil {
		return 0, err
	}
	return emb.Dimensions(), nil
}

// Status reports the load state without triggering a load.
func (p *Provider) Status() string {
	s := p.state.Load()
	switch {
	case s == nil:
		return StatusNotLoaded
	case s.err != nil:
		return StatusUnavailable
	default:
		return StatusReady
	}
}

// Close releases the loaded embedder, if any.
func (p *Provider) Close() error {
	if s := p.state.Load(); s != nil && s.embedder != nil {
		return s.embedder.Close()
	}
	return nil
}
