package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/resumerank/internal/keyword"
	"github.com/hyperjump/resumerank/internal/metrics"
	"github.com/hyperjump/resumerank/internal/models"
)

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var input models.JobInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondFailure(w, "create job: decode failed", err)
		return
	}
	job, err := s.jobs.CreateJob(r.Context(), &input)
	if err != nil {
		s.respondFailure(w, "create job failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.respondFailure(w, "list jobs: bad offset", err)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		s.respondFailure(w, "list jobs: bad limit", err)
		return
	}
	list, total, err := s.jobs.ListJobs(r.Context(), offset, limit)
	if err != nil {
		s.respondFailure(w, "list jobs failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"jobs": list, "total": total})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, "get job failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleRankJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	q := r.URL.Query()
	weights, err := parseWeights(q.Get("semantic_weight"), q.Get("skills_weight"))
	if err != nil {
		s.respondFailure(w, "rank job: invalid weights", err)
		return
	}
	s.logger.Debug("rank job request", zap.String("job_id", jobID))

	start := time.Now()
	results, err := s.jobs.RankJob(r.Context(), jobID, weights)
	s.metrics.ObserveRank(metrics.SourceJob, time.Since(start), len(results), err)
	if err != nil {
		s.respondFailure(w, "rank job failed", err)
		return
	}
	stripText(results)
	s.respondJSON(w, http.StatusOK, rankResponse(results, start))
}

// handleAddApplication accepts either a multipart "resume" file or a JSON {filename, text} body.
func (s *Server) handleAddApplication(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := s.parseMultipart(r); err != nil {
			s.respondFailure(w, "add application: parse failed", err)
			return
		}
		file, header, err := r.FormFile("resume")
		if err != nil {
			s.respondFailure(w, "add application: missing file", fmt.Errorf("%w: resume file is required", errBadRequest))
			return
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			s.respondFailure(w, "add application: read failed", err)
			return
		}
		app, err := s.jobs.AddApplicationFile(r.Context(), jobID, header.Filename, content)
		if err != nil {
			s.respondFailure(w, "add application failed", err)
			return
		}
		s.respondJSON(w, http.StatusCreated, app)
		return
	}

	var input models.ApplicationInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondFailure(w, "add application: decode failed", err)
		return
	}
	app, err := s.jobs.AddApplication(r.Context(), jobID, &input)
	if err != nil {
		s.respondFailure(w, "add application failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, app)
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.jobs.ListApplications(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("status"))
	if err != nil {
		s.respondFailure(w, "list applications failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"applications": apps})
}

func (s *Server) handleSearchApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		s.respondFailure(w, "search: empty query", fmt.Errorf("%w: q is required", errBadRequest))
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.respondFailure(w, "search: bad limit", err)
		return
	}
	opts := &keyword.SearchOptions{
		FilenameBoost: 2,
		RequireAll:    q.Get("all") == "true",
	}
	if q.Get("fuzzy") == "true" {
		opts.Fuzziness = 1
	}

	start := time.Now()
	hits, err := s.jobs.Search(r.Context(), chi.URLParam(r, "id"), query, limit, opts)
	if err != nil {
		s.respondFailure(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.SearchResponse{
		Query:     query,
		Hits:      hits,
		Total:     len(hits),
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var input models.StatusInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondFailure(w, "update status: decode failed", err)
		return
	}
	app, err := s.jobs.UpdateStatus(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "appID"), &input)
	if err != nil {
		s.respondFailure(w, "update status failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, app)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, key)
	}
	return n, nil
}
