// Package ranking scores resumes against a job description by blending embedding similarity
// with JD-derived skill overlap, and orders them into a stable ranking.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/resumerank/internal/normalize"
	"github.com/hyperjump/resumerank/internal/skills"
	"github.com/hyperjump/resumerank/pkg/utils"
)

// Embedder is the subset of embedding.Provider the ranker needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Similarity(a, b []float32) (float64, error)
}

// Ranker ranks resumes. It is safe for concurrent use once constructed.
type Ranker struct {
	embedder       Embedder
	vocab          skills.Vocabulary
	weights        Weights
	maxExperience  int
	rejectEmptyJob bool
	logger         *zap.Logger
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithLogger sets the logger for debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Ranker) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithWeights overrides DefaultWeights for calls that pass nil weights.
func WithWeights(w Weights) Option {
	return func(r *Ranker) { r.weights = w }
}

// WithMaxExperienceYears sets the exclusive upper bound for experience figures.
func WithMaxExperienceYears(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.maxExperience = n
		}
	}
}

// WithRejectEmptyJobDescription makes Rank fail with ErrInvalidInput when the job
// description normalizes to the empty string.
func WithRejectEmptyJobDescription(reject bool) Option {
	return func(r *Ranker) { r.rejectEmptyJob = reject }
}

// NewRanker creates a Ranker over the given embedder and global skill vocabulary.
func NewRanker(embedder Embedder, vocab skills.Vocabulary, opts ...Option) *Ranker {
	r := &Ranker{
		embedder:      embedder,
		vocab:         vocab,
		weights:       DefaultWeights(),
		maxExperience: DefaultMaxExperienceYears,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Vocabulary returns the global skill vocabulary used to derive required skills.
func (r *Ranker) Vocabulary() skills.Vocabulary {
	return r.vocab
}

// Rank scores every resume against jd and returns them ordered by descending score with
// ranks 1..N. Exact ties keep input order. weights nil means the ranker's defaults.
// If embeddings cannot be computed the call fails with ErrRankingUnavailable and no
// results are returned.
func (r *Ranker) Rank(ctx context.Context, jd string, resumes []Resume, weights *Weights) ([]RankedResult, error) {
	if len(resumes) == 0 {
		return []RankedResult{}, nil
	}
	normalizedJD := normalize.Text(jd)
	if normalizedJD == "" && r.rejectEmptyJob {
		return nil, fmt.Errorf("%w: job description is empty", ErrInvalidInput)
	}
	w := r.weights
	if weights != nil {
		w = *weights
	}

	start := time.Now()
	jdVecs, err := r.embedder.Embed(ctx, []string{normalizedJD})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRankingUnavailable, err)
	}
	if len(jdVecs) != 1 {
		return nil, fmt.Errorf("%w: job description embedding missing", ErrRankingUnavailable)
	}
	texts := make([]string, len(resumes))
	for i, res := range resumes {
		texts[i] = normalize.Text(res.Text)
	}
	resumeVecs, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRankingUnavailable, err)
	}
	if len(resumeVecs) != len(resumes) {
		return nil, fmt.Errorf("%w: got %d resume embeddings for %d resumes",
			ErrRankingUnavailable, len(resumeVecs), len(resumes))
	}

	// Skill and experience features use the raw texts; normalization would strip
	// characters such as "+" and "/" that skills like c++ and ci/cd depend on.
	required := RequiredSkills(jd, r.vocab)
	results := make([]RankedResult, len(resumes))
	for i, res := range resumes {
		sim, err := r.embedder.Similarity(jdVecs[0], resumeVecs[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRankingUnavailable, err)
		}
		semantic := max(0, min(1, sim))
		f := featuresFor(res.Text, required, r.maxExperience)

		out := res
		if out.ID == "" {
			out.ID = DeriveID(res.Filename, res.Text)
		}
		results[i] = RankedResult{
			Resume: out,
			Score:  utils.Round2((semantic*w.Semantic + f.SkillScore*w.Skills) * 100),
			Analysis: Analysis{
				SemanticScore:   utils.Round2(semantic * 100),
				SkillScore:      utils.Round2(f.SkillScore * 100),
				MatchedSkills:   f.Matched,
				MissingSkills:   f.Missing,
				ExperienceYears: f.ExperienceYears,
			},
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	for i := range results {
		results[i].Rank = i + 1
	}

	r.logger.Debug("Ranked resumes",
		zap.Int("resumes", len(results)),
		zap.Int("required_skills", len(required)),
		zap.Duration("duration", time.Since(start)))
	return results, nil
}
