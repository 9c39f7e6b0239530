package ranking

import (
	"github.com/hyperjump/resumerank/internal/skills"
)

// Features are the rule-based signals extracted from one resume against a job description.
type Features struct {
	Required        skills.Vocabulary
	Matched         skills.Vocabulary
	Missing         skills.Vocabulary
	SkillScore      float64 // fraction of Required present, 0..1
	ExperienceYears float64
}

// RequiredSkills returns the skills in vocab mentioned by the job description.
func RequiredSkills(jdText string, vocab skills.Vocabulary) skills.Vocabulary {
	return skills.Extract(jdText, vocab)
}

// ScoreSkills scans resumeText against the required set only, so matched is always a subset
// of required. The score is |matched| / |required|, or 0 when nothing is required.
func ScoreSkills(resumeText string, required skills.Vocabulary) (matched, missing skills.Vocabulary, score float64) {
	matched = skills.Extract(resumeText, required)
	missing = required.Without(matched)
	if len(required) > 0 {
		score = float64(len(matched)) / float64(len(required))
	}
	return matched, missing, score
}

// ExtractFeatures derives the skill overlap and experience estimate of a resume.
func ExtractFeatures(resumeText, jdText string, vocab skills.Vocabulary, maxYears int) Features {
	return featuresFor(resumeText, RequiredSkills(jdText, vocab), maxYears)
}

func featuresFor(resumeText string, required skills.Vocabulary, maxYears int) Features {
	matched, missing, score := ScoreSkills(resumeText, required)
	return Features{
		Required:        required,
		Matched:         matched,
		Missing:         missing,
		SkillScore:      score,
		ExperienceYears: ExtractExperience(resumeText, maxYears),
	}
}
