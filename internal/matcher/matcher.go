// Package matcher analyses a single resume against a job description using the global skill
// vocabulary and attaches improvement suggestions.
package matcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/resumerank/internal/ranking"
	"github.com/hyperjump/resumerank/internal/skills"
	"github.com/hyperjump/resumerank/internal/suggest"
	"github.com/hyperjump/resumerank/pkg/utils"
)

// Report is the result of Match.
type Report struct {
	MatchScore      float64            `json:"match_score"`
	MatchedSkills   skills.Vocabulary  `json:"matched_skills"`
	MissingSkills   skills.Vocabulary  `json:"missing_skills"`
	ExperienceYears float64            `json:"experience_years"`
	Role            string             `json:"role"`
	Suggestions     suggest.Suggestion `json:"suggestions"`
}

// Matcher scans resume and JD against one vocabulary and reports the overlap.
type Matcher struct {
	vocab         skills.Vocabulary
	suggester     *suggest.Suggester
	defaultRole   string
	maxExperience int
	logger        *zap.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Matcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDefaultRole sets the role used when Match is called without one.
func WithDefaultRole(role string) Option {
	return func(m *Matcher) {
		if role != "" {
			m.defaultRole = role
		}
	}
}

// WithMaxExperienceYears sets the exclusive upper bound for experience figures.
func WithMaxExperienceYears(n int) Option {
	return func(m *Matcher) { m.maxExperience = n }
}

// New creates a Matcher. A nil suggester yields fallback suggestions only.
func New(vocab skills.Vocabulary, suggester *suggest.Suggester, opts ...Option) *Matcher {
	if suggester == nil {
		suggester = suggest.NewSuggester(nil)
	}
	m := &Matcher{
		vocab:         vocab,
		suggester:     suggester,
		defaultRole:   suggest.DefaultRole,
		maxExperience: ranking.DefaultMaxExperienceYears,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match computes the share of JD skills present in the resume (0-100, two decimals), the
// matched and missing skills in vocabulary order, and suggestions for the missing ones.
func (m *Matcher) Match(ctx context.Context, resumeText, jdText, role string) *Report {
	if role == "" {
		role = m.defaultRole
	}
	resumeSkills := skills.Extract(resumeText, m.vocab)
	jdSkills := skills.Extract(jdText, m.vocab)

	matched := jdSkills.Intersect(resumeSkills)
	missing := jdSkills.Without(resumeSkills)
	var score float64
	if len(jdSkills) > 0 {
		score = utils.Round2(float64(len(matched)) / float64(len(jdSkills)) * 100)
	}

	m.logger.Debug("Matched resume",
		zap.Int("jd_skills", len(jdSkills)),
		zap.Int("matched", len(matched)))

	return &Report{
		MatchScore:      score,
		MatchedSkills:   matched,
		MissingSkills:   missing,
		ExperienceYears: ranking.ExtractExperience(resumeText, m.maxExperience),
		Role:            role,
		Suggestions:     m.suggester.Suggest(ctx, missing, role),
	}
}
