package config

import (
	"time"

	"github.com/hyperjump/resumerank/internal/suggest"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 20
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/resumerank.db"
	}
	if cfg.Storage.SearchIndexPath == "" {
		cfg.Storage.SearchIndexPath = "./data/applications.bleve"
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "./data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.VocabPath == "" {
		cfg.Embedding.VocabPath = "./data/models/vocab.txt"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.Pooling == "" {
		cfg.Embedding.Pooling = "mean"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 16
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Ranking.SemanticWeight == nil {
		w := 0.7
		cfg.Ranking.SemanticWeight = &w
	}
	if cfg.Ranking.SkillsWeight == nil {
		w := 0.3
		cfg.Ranking.SkillsWeight = &w
	}
	if cfg.Ranking.MaxExperienceYears == 0 {
		cfg.Ranking.MaxExperienceYears = 50
	}
	if cfg.Suggestions.Model == "" {
		cfg.Suggestions.Model = suggest.DefaultModel
	}
	if cfg.Suggestions.TimeoutSeconds == 0 {
		cfg.Suggestions.TimeoutSeconds = int(suggest.DefaultTimeout / time.Second)
	}
	if cfg.Suggestions.DefaultRole == "" {
		cfg.Suggestions.DefaultRole = suggest.DefaultRole
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 400
	}
}
