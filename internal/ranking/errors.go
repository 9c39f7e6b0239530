package ranking

import "errors"

var (
	// ErrRankingUnavailable is returned when semantic scores cannot be computed. It wraps the
	// underlying embedding error; no partial ranking is returned.
	ErrRankingUnavailable = errors.New("ranking unavailable")
	// ErrInvalidInput is returned for an empty job description when the ranker is configured
	// to reject it.
	ErrInvalidInput = errors.New("invalid input")
)
