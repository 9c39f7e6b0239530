package ranking

import (
	"regexp"
	"strconv"
)

// DefaultMaxExperienceYears bounds plausible experience values; larger numbers are usually
// calendar years or other misparsed figures.
const DefaultMaxExperienceYears = 50

var experiencePattern = regexp.MustCompile(`(?i)(\d+)\+?\s*(?:years|yrs)`)

// ExtractExperience returns the largest "N years" / "N+ yrs" figure in text that is below
// maxYears, or 0 when none is found. A non-positive maxYears uses DefaultMaxExperienceYears.
func ExtractExperience(text string, maxYears int) float64 {
	if maxYears <= 0 {
		maxYears = DefaultMaxExperienceYears
	}
	best := 0
	for _, m := range experiencePattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n >= maxYears {
			continue
		}
		if n > best {
			best = n
		}
	}
	return float64(best)
}
