package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/resumerank/internal/embedding"
	"github.com/hyperjump/resumerank/internal/extract"
	"github.com/hyperjump/resumerank/internal/jobs"
	"github.com/hyperjump/resumerank/internal/metrics"
	"github.com/hyperjump/resumerank/internal/models"
	"github.com/hyperjump/resumerank/internal/ranking"
	"github.com/hyperjump/resumerank/internal/storage"
)

// errBadRequest marks malformed requests.
var errBadRequest = errors.New("bad request")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}
	if s.jobs != nil {
		stats, err := s.jobs.Stats(r.Context())
		if err != nil {
			s.respondFailure(w, "status: stats failed", err)
			return
		}
		resp["jobs"] = stats.Jobs
		resp["applications"] = stats.Applications
		resp["indexed"] = stats.Indexed
	}
	if len(s.diskPaths) > 0 {
		if diskBytes, err := storage.UsageBytes(s.diskPaths...); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		} else {
			s.logger.Warn("status: disk usage failed", zap.Error(err))
		}
	}
	if s.model != nil {
		resp["model_status"] = s.model.Status()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req models.RankRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondFailure(w, "rank: decode failed", err)
		return
	}
	if err := models.Validate(&req); err != nil {
		s.respondFailure(w, "rank: invalid request", err)
		return
	}
	s.logger.Debug("rank request", zap.Int("resumes", len(req.Resumes)))

	start := time.Now()
	results, err := s.ranker.Rank(r.Context(), req.JobDescription, req.Resumes, req.Weights.Weights())
	s.metrics.ObserveRank(metrics.SourceAPI, time.Since(start), len(results), err)
	if err != nil {
		s.respondFailure(w, "rank failed", err)
		return
	}
	if !req.IncludeText {
		stripText(results)
	}
	s.respondJSON(w, http.StatusOK, rankResponse(results, start))
}

func (s *Server) handleRankUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(r); err != nil {
		s.respondFailure(w, "rank upload: parse failed", err)
		return
	}
	weights, err := parseWeights(r.FormValue("semantic_weight"), r.FormValue("skills_weight"))
	if err != nil {
		s.respondFailure(w, "rank upload: invalid weights", err)
		return
	}
	files := r.MultipartForm.File["resumes"]
	if len(files) == 0 {
		s.respondFailure(w, "rank upload: no files", fmt.Errorf("%w: at least one resumes file is required", errBadRequest))
		return
	}
	if len(files) > models.MaxResumesPerRequest {
		s.respondFailure(w, "rank upload: too many files",
			fmt.Errorf("%w: at most %d resumes per request", errBadRequest, models.MaxResumesPerRequest))
		return
	}

	start := time.Now()
	resumes, err := s.extractUploads(r.Context(), files)
	if err != nil {
		s.respondFailure(w, "rank upload: extraction failed", err)
		return
	}
	results, err := s.ranker.Rank(r.Context(), r.FormValue("job_description"), resumes, weights)
	s.metrics.ObserveRank(metrics.SourceUpload, time.Since(start), len(results), err)
	if err != nil {
		s.respondFailure(w, "rank upload failed", err)
		return
	}
	stripText(results)
	s.respondJSON(w, http.StatusOK, rankResponse(results, start))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(r); err != nil {
		s.respondFailure(w, "analyze: parse failed", err)
		return
	}
	files := r.MultipartForm.File["resume"]
	if len(files) != 1 {
		s.respondFailure(w, "analyze: missing file", fmt.Errorf("%w: exactly one resume file is required", errBadRequest))
		return
	}
	resumes, err := s.extractUploads(r.Context(), files)
	if err != nil {
		s.respondFailure(w, "analyze: extraction failed", err)
		return
	}
	report := s.analyzer.Match(r.Context(), resumes[0].Text, r.FormValue("job_description"), r.FormValue("role"))
	s.respondJSON(w, http.StatusOK, models.AnalyzeResponse{Filename: resumes[0].Filename, Analysis: report})
}

func rankResponse(results []ranking.RankedResult, start time.Time) models.RankResponse {
	if results == nil {
		results = []ranking.RankedResult{}
	}
	return models.RankResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
	}
}

func stripText(results []ranking.RankedResult) {
	for i := range results {
		results[i].Text = ""
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("%w: invalid request body", errBadRequest)
	}
	return nil
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, models.ErrValidation),
		errors.Is(err, ranking.ErrInvalidInput),
		errors.Is(err, jobs.ErrEmptyResume),
		errors.Is(err, extract.ErrUnsupportedFormat),
		errors.Is(err, extract.ErrUnreadable):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ranking.ErrRankingUnavailable),
		errors.Is(err, embedding.ErrModelUnavailable),
		errors.Is(err, jobs.ErrSearchUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, msg string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
