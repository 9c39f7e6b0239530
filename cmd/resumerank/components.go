package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hyperjump/resumerank/internal/config"
	"github.com/hyperjump/resumerank/internal/embedding"
	"github.com/hyperjump/resumerank/internal/extract"
	"github.com/hyperjump/resumerank/internal/jobs"
	"github.com/hyperjump/resumerank/internal/keyword"
	"github.com/hyperjump/resumerank/internal/matcher"
	"github.com/hyperjump/resumerank/internal/metrics"
	"github.com/hyperjump/resumerank/internal/ranking"
	"github.com/hyperjump/resumerank/internal/skills"
	"github.com/hyperjump/resumerank/internal/storage"
	"github.com/hyperjump/resumerank/internal/suggest"
)

// Components holds initialized services.
type Components struct {
	Provider  *embedding.Provider
	Ranker    *ranking.Ranker
	Matcher   *matcher.Matcher
	Metrics   *metrics.Metrics
	Extractor *extract.Extractor

	// Set by openJobs; the CLI ranking commands do not need them.
	Storage storage.Storage
	Index   *keyword.BleveIndex
	Jobs    *jobs.Service
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Provider != nil {
		_ = c.Provider.Close()
	}
}

// initializeComponents builds the ranking stack. The embedding model is loaded lazily on the
// first ranking call. Metrics are registered with reg when it is not nil.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*Components, error) {
	vocab := skills.Default()
	if cfg.Skills.VocabularyPath != "" {
		loaded, err := skills.Load(cfg.Skills.VocabularyPath)
		if err != nil {
			return nil, err
		}
		vocab = loaded
	}

	m := metrics.NewMetrics()
	if reg != nil {
		if err := m.Register(reg); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	provider := embedding.NewProvider(embedderFactory(cfg.Embedding, logger), embedding.WithLogger(logger))
	ranker := ranking.NewRanker(provider, vocab,
		ranking.WithLogger(logger),
		ranking.WithWeights(cfg.Ranking.Weights()),
		ranking.WithMaxExperienceYears(cfg.Ranking.MaxExperienceYears),
		ranking.WithRejectEmptyJobDescription(cfg.Ranking.RejectEmptyJobDescription),
	)

	var generator suggest.Generator
	if cfg.Suggestions.IsEnabled() && cfg.Suggestions.APIKey != "" {
		gemini, err := suggest.NewGeminiGenerator(ctx, cfg.Suggestions.APIKey, cfg.Suggestions.Model)
		if err != nil {
			logger.Warn("gemini unavailable, using rule-based suggestions", zap.Error(err))
		} else {
			generator = gemini
		}
	}
	suggester := suggest.NewSuggester(generator,
		suggest.WithLogger(logger),
		suggest.WithRecorder(m),
		suggest.WithTimeout(cfg.Suggestions.Timeout()),
	)

	return &Components{
		Provider: provider,
		Ranker:   ranker,
		Matcher: matcher.New(vocab, suggester,
			matcher.WithLogger(logger),
			matcher.WithDefaultRole(cfg.Suggestions.DefaultRole),
			matcher.WithMaxExperienceYears(cfg.Ranking.MaxExperienceYears),
		),
		Metrics:   m,
		Extractor: extract.NewExtractor(),
	}, nil
}

// openJobs opens the application store and search index and builds the jobs service.
func (c *Components) openJobs(cfg *config.Config, logger *zap.Logger) error {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	indexPath := cfg.Storage.SearchIndexPath
	if cfg.Storage.InMemoryIndex() {
		indexPath = ""
	}
	index, err := keyword.NewBleveIndex(indexPath)
	if err != nil {
		return fmt.Errorf("failed to initialize search index: %w", err)
	}
	c.Index = index

	c.Jobs = jobs.NewService(store, c.Ranker, c.Extractor,
		jobs.WithLogger(logger),
		jobs.WithIndex(index),
	)
	return nil
}

// embedderFactory returns the Provider factory for the configured backend.
func embedderFactory(cfg config.EmbeddingConfig, logger *zap.Logger) embedding.Factory {
	return func() (embedding.Embedder, error) {
		if cfg.Backend == "hash" {
			return embedding.NewHashEmbedder(cfg.Dimensions), nil
		}

		// A configured but missing vocabulary leaves the model unavailable.
		var tokenizer embedding.Tokenizer
		if cfg.HashTokenizer() {
			logger.Warn("no tokenizer vocabulary configured, semantic scores use the hash tokenizer")
		} else {
			if _, err := os.Stat(cfg.VocabPath); err != nil {
				return nil, fmt.Errorf("tokenizer vocabulary %s: %w", cfg.VocabPath, err)
			}
			wp, err := embedding.LoadWordPieceTokenizer(cfg.VocabPath)
			if err != nil {
				return nil, err
			}
			tokenizer = wp
		}

		emb, err := embedding.NewONNXEmbedder(embedding.ONNXConfig{
			ModelPath:         cfg.ModelPath,
			SharedLibraryPath: cfg.SharedLibraryPath,
			OutputName:        cfg.OutputName,
			Pooling:           embedding.Pooling(cfg.Pooling),
			Dimensions:        cfg.Dimensions,
			MaxTokens:         cfg.MaxTokens,
			BatchSize:         cfg.BatchSize,
			CacheSize:         cfg.CacheSize,
			Tokenizer:         tokenizer,
		})
		if err != nil {
			return nil, err
		}
		return emb, nil
	}
}
