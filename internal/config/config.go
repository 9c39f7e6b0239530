// Package config provides configuration loading and structs for resumerank.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/resumerank/internal/ranking"
)

// Environment variables that override file values.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvModelPath    = "RESUMERANK_MODEL_PATH"
)

// MemoryIndex as storage.search_index_path keeps the search index in memory.
const MemoryIndex = "memory"

// NoVocabulary as embedding.vocab_path selects the hash tokenizer. Semantic scores are
// degraded in that mode; a configured vocabulary that is missing leaves the model unavailable.
const NoVocabulary = "none"

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Ranking     RankingConfig     `yaml:"ranking"`
	Skills      SkillsConfig      `yaml:"skills"`
	Suggestions SuggestionsConfig `yaml:"suggestions"`
	Watch       WatchConfig       `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string `yaml:"host" validate:"required"`
	Port        int    `yaml:"port" validate:"gte=1,lte=65535"`
	MaxUploadMB int    `yaml:"max_upload_mb" validate:"gte=1"`
}

// MaxUploadBytes returns the request body limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// StorageConfig holds paths for the database and the search index.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path" validate:"required"`
	SearchIndexPath string `yaml:"search_index_path"`
}

// InMemoryIndex reports whether the search index should not be persisted.
func (s StorageConfig) InMemoryIndex() bool {
	return s.SearchIndexPath == MemoryIndex
}

// EmbeddingConfig holds embedding backend settings.
type EmbeddingConfig struct {
	// Backend is "onnx" (sentence model) or "hash" (feature hashing, no model files).
	Backend           string `yaml:"backend" validate:"oneof=onnx hash"`
	ModelPath         string `yaml:"model_path"`
	VocabPath         string `yaml:"vocab_path"` // WordPiece vocabulary, or NoVocabulary
	SharedLibraryPath string `yaml:"shared_library_path"`
	OutputName        string `yaml:"output_name"`
	Pooling           string `yaml:"pooling" validate:"oneof=mean none"`
	Dimensions        int    `yaml:"dimensions" validate:"gte=1"`
	MaxTokens         int    `yaml:"max_tokens" validate:"gte=8"`
	BatchSize         int    `yaml:"batch_size" validate:"gte=1"`
	CacheSize         int    `yaml:"cache_size" validate:"gte=0"`
}

// HashTokenizer reports whether no WordPiece vocabulary is configured.
func (e EmbeddingConfig) HashTokenizer() bool {
	return e.VocabPath == "" || e.VocabPath == NoVocabulary
}

// RankingConfig holds score blending settings. Weights are pointers so that an explicit 0 is kept.
type RankingConfig struct {
	SemanticWeight            *float64 `yaml:"semantic_weight" validate:"required,gte=0"`
	SkillsWeight              *float64 `yaml:"skills_weight" validate:"required,gte=0"`
	MaxExperienceYears        int      `yaml:"max_experience_years" validate:"gte=1"`
	RejectEmptyJobDescription bool     `yaml:"reject_empty_job_description"`
}

// Weights returns the configured blend.
func (r RankingConfig) Weights() ranking.Weights {
	w := ranking.DefaultWeights()
	if r.SemanticWeight != nil {
		w.Semantic = *r.SemanticWeight
	}
	if r.SkillsWeight != nil {
		w.Skills = *r.SkillsWeight
	}
	return w
}

// SkillsConfig locates the skill vocabulary. An empty path uses the built-in list.
type SkillsConfig struct {
	VocabularyPath string `yaml:"vocabulary_path"`
}

// SuggestionsConfig holds AI suggestion settings.
type SuggestionsConfig struct {
	Enabled     *bool  `yaml:"enabled"`
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	DefaultRole string `yaml:"default_role"`
	// TimeoutSeconds bounds each generator call; 0 means the default.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=0"`
}

// IsEnabled reports whether suggestions should call the generator; defaults to true when unset.
func (s SuggestionsConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Timeout returns the deadline for one generator call.
func (s SuggestionsConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// WatchConfig holds folder watch settings.
type WatchConfig struct {
	DebounceMS int  `yaml:"debounce_ms" validate:"gte=0"`
	Recursive  bool `yaml:"recursive"`
}

// Debounce returns the quiet period between a burst of file events and a re-rank.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the built-in configuration with paths relative to the working directory.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	applyEnv(cfg)
	expandPaths(cfg, ".")
	return cfg
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, expands paths and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)
	expandPaths(&cfg, filepath.Dir(path))

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and returns one error listing every violation.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %q constraint not met (value %v)", yamlPath(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// yamlPath turns "Config.Server.MaxUploadMB" into "server.maxuploadmb" for error messages.
func yamlPath(namespace string) string {
	namespace = strings.TrimPrefix(namespace, "Config.")
	return strings.ToLower(namespace)
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvGeminiAPIKey); ok && v != "" {
		cfg.Suggestions.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvModelPath); ok && v != "" {
		cfg.Embedding.ModelPath = v
	}
}

func expandPaths(cfg *Config, configDir string) {
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if !cfg.Storage.InMemoryIndex() {
		cfg.Storage.SearchIndexPath = expandPath(cfg.Storage.SearchIndexPath, configDir)
	}
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if !cfg.Embedding.HashTokenizer() {
		cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	}
	cfg.Embedding.SharedLibraryPath = expandPath(cfg.Embedding.SharedLibraryPath, configDir)
	cfg.Skills.VocabularyPath = expandPath(cfg.Skills.VocabularyPath, configDir)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		if abs, err := filepath.Abs(filepath.Join(configDir, path)); err == nil {
			return abs
		}
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
