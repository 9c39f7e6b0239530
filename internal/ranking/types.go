package ranking

import (
	"github.com/google/uuid"

	"github.com/hyperjump/resumerank/internal/skills"
)

// Resume is a candidate document supplied by the caller.
type Resume struct {
	ID       string `json:"id,omitempty"`
	Filename string `json:"filename"`
	Text     string `json:"text,omitempty"`
}

// Weights blends the semantic and skill scores. They are not required to sum to 1.
type Weights struct {
	Semantic float64 `json:"semantic"`
	Skills   float64 `json:"skills"`
}

// DefaultWeights returns {semantic: 0.7, skills: 0.3}.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.7, Skills: 0.3}
}

// Analysis explains how a resume's score was computed. Scores are on the 0-100 scale.
type Analysis struct {
	SemanticScore   float64           `json:"semantic_score"`
	SkillScore      float64           `json:"skill_score"`
	MatchedSkills   skills.Vocabulary `json:"matched_skills"`
	MissingSkills   skills.Vocabulary `json:"missing_skills"`
	ExperienceYears float64           `json:"experience_years"`
}

// RankedResult is a resume with its blended score and 1-based rank.
type RankedResult struct {
	Resume
	Score    float64  `json:"score"`
	Rank     int      `json:"rank"`
	Analysis Analysis `json:"analysis"`
}

// DeriveID returns a stable identifier for a resume with no caller-supplied ID.
// Identical filename and text always yield the same ID.
func DeriveID(filename, text string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(filename+"\x00"+text)).String()
}
