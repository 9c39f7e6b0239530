package models

import (
	"github.com/hyperjump/resumerank/internal/matcher"
	"github.com/hyperjump/resumerank/internal/ranking"
)

// MaxResumesPerRequest bounds the batch size accepted by the rank endpoints.
const MaxResumesPerRequest = 500

// RankRequest is the JSON body of POST /api/v1/rank.
type RankRequest struct {
	JobDescription string           `json:"job_description" validate:"max=100000"`
	Resumes        []ranking.Resume `json:"resumes" validate:"max=500,dive"`
	Weights        *WeightsInput    `json:"weights,omitempty"`
	IncludeText    bool             `json:"include_text,omitempty"`
}

// WeightsInput overrides the default blend. Both fields must be set together.
type WeightsInput struct {
	Semantic *float64 `json:"semantic" validate:"required,gte=0"`
	Skills   *float64 `json:"skills" validate:"required,gte=0"`
}

// Weights converts the input to ranking weights; nil input yields nil.
func (w *WeightsInput) Weights() *ranking.Weights {
	if w == nil || w.Semantic == nil || w.Skills == nil {
		return nil
	}
	return &ranking.Weights{Semantic: *w.Semantic, Skills: *w.Skills}
}

// RankResponse is returned by every ranking endpoint.
type RankResponse struct {
	Results   []ranking.RankedResult `json:"results"`
	Total     int                    `json:"total"`
	QueryTime int64                  `json:"query_time_ms"`
}

// AnalyzeResponse is returned by POST /api/v1/analyze.
type AnalyzeResponse struct {
	Filename string          `json:"filename"`
	Analysis *matcher.Report `json:"analysis"`
}

// SearchHit is one application matched by a keyword search.
type SearchHit struct {
	Application *Application `json:"application"`
	Score       float64      `json:"score"`
}

// SearchResponse is returned by the application search endpoint.
type SearchResponse struct {
	Query     string      `json:"query"`
	Hits      []SearchHit `json:"hits"`
	Total     int         `json:"total"`
	QueryTime int64       `json:"query_time_ms"`
}
