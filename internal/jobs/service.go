// Package jobs manages open positions and the applications submitted to them: intake,
// keyword search, status changes and ranking of the pending pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/resumerank/internal/extract"
	"github.com/hyperjump/resumerank/internal/keyword"
	"github.com/hyperjump/resumerank/internal/models"
	"github.com/hyperjump/resumerank/internal/normalize"
	"github.com/hyperjump/resumerank/internal/ranking"
	"github.com/hyperjump/resumerank/internal/storage"
)

var (
	// ErrEmptyResume is returned when an application has no text after extraction.
	ErrEmptyResume = errors.New("resume has no text")
	// ErrSearchUnavailable is returned by Search when the service has no keyword index.
	ErrSearchUnavailable = errors.New("search index not configured")
)

const defaultSearchLimit = 20

// Ranker ranks resumes against a job description.
type Ranker interface {
	Rank(ctx context.Context, jd string, resumes []ranking.Resume, weights *ranking.Weights) ([]ranking.RankedResult, error)
}

// Service coordinates storage, the keyword index and the ranker.
type Service struct {
	storage   storage.Storage
	ranker    Ranker
	index     keyword.Index
	extractor *extract.Extractor
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIndex enables keyword search over applications.
func WithIndex(idx keyword.Index) Option {
	return func(s *Service) { s.index = idx }
}

// NewService creates a job service. extractor may be nil, in which case uploaded files are
// read as plain text.
func NewService(store storage.Storage, ranker Ranker, extractor *extract.Extractor, opts ...Option) *Service {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	s := &Service{
		storage:   store,
		ranker:    ranker,
		extractor: extractor,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJob validates input and stores a new job.
func (s *Service) CreateJob(ctx context.Context, input *models.JobInput) (*models.Job, error) {
	if err := models.Validate(input); err != nil {
		return nil, err
	}
	job := &models.Job{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Role:        strings.TrimSpace(input.Role),
	}
	if err := s.storage.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Debug("job created", zap.String("id", job.ID), zap.String("title", job.Title))
	return job, nil
}

// GetJob returns a job by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*models.Job, error) {
	return s.storage.GetJob(ctx, id)
}

// ListJobs returns a page of jobs, newest first, and the total job count.
func (s *Service) ListJobs(ctx context.Context, offset, limit int) ([]*models.Job, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	jobs, err := s.storage.ListJobs(ctx, max(offset, 0), limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.storage.CountJobs(ctx)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// AddApplication stores a resume whose text is already extracted.
func (s *Service) AddApplication(ctx context.Context, jobID string, input *models.ApplicationInput) (*models.Application, error) {
	if err := models.Validate(input); err != nil {
		return nil, err
	}
	if _, err := s.storage.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	text := normalize.Clean(input.Text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", input.Filename, ErrEmptyResume)
	}
	app := &models.Application{
		ID:       uuid.New().String(),
		JobID:    jobID,
		Filename: filepath.Base(input.Filename),
		Text:     text,
		Status:   models.StatusPending,
	}
	if err := s.storage.CreateApplication(ctx, app); err != nil {
		return nil, err
	}
	s.indexApplication(ctx, app)
	s.logger.Debug("application added",
		zap.String("job_id", jobID),
		zap.String("id", app.ID),
		zap.String("filename", app.Filename))
	return app, nil
}

// AddApplicationFile extracts text from an uploaded resume file and stores it.
func (s *Service) AddApplicationFile(ctx context.Context, jobID, filename string, content []byte) (*models.Application, error) {
	text, err := s.extractor.ExtractBytes(content, filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return s.AddApplication(ctx, jobID, &models.ApplicationInput{Filename: filename, Text: text})
}

// ListApplications returns a job's applications, optionally filtered by status.
func (s *Service) ListApplications(ctx context.Context, jobID, status string) ([]*models.Application, error) {
	if _, err := s.storage.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	if status != "" {
		if err := models.Validate(&models.StatusInput{Status: status}); err != nil {
			return nil, err
		}
	}
	return s.storage.ListApplications(ctx, jobID, storage.ApplicationFilter{Status: status, ByRank: true})
}

// UpdateStatus changes the status of an application belonging to jobID. Score and rank are kept.
func (s *Service) UpdateStatus(ctx context.Context, jobID, appID string, input *models.StatusInput) (*models.Application, error) {
	if err := models.Validate(input); err != nil {
		return nil, err
	}
	app, err := s.storage.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.JobID != jobID {
		return nil, fmt.Errorf("application %s in job %s: %w", appID, jobID, storage.ErrNotFound)
	}
	if err := s.storage.UpdateApplicationStatus(ctx, appID, input.Status); err != nil {
		return nil, err
	}
	s.logger.Debug("application status changed",
		zap.String("id", appID),
		zap.String("from", app.Status),
		zap.String("to", input.Status))
	return s.storage.GetApplication(ctx, appID)
}

// RankJob ranks the job's pending applications against its description (or its title when
// the description is empty) and stores score, rank and analysis on each application. A failed
// write is logged; the ranked list is still returned.
func (s *Service) RankJob(ctx context.Context, jobID string, weights *ranking.Weights) ([]ranking.RankedResult, error) {
	job, err := s.storage.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	apps, err := s.storage.ListApplications(ctx, jobID, storage.ApplicationFilter{Status: models.StatusPending})
	if err != nil {
		return nil, fmt.Errorf("failed to load applications: %w", err)
	}
	resumes := make([]ranking.Resume, len(apps))
	for i, app := range apps {
		resumes[i] = ranking.Resume{ID: app.ID, Filename: app.Filename, Text: app.Text}
	}

	jd := job.Description
	if strings.TrimSpace(jd) == "" {
		jd = job.Title
	}
	results, err := s.ranker.Rank(ctx, jd, resumes, weights)
	if err != nil {
		return nil, err
	}

	for i := range results {
		r := &results[i]
		analysis := r.Analysis
		if err := s.storage.UpdateApplicationRanking(ctx, r.ID, r.Score, r.Rank, &analysis); err != nil {
			s.logger.Warn("failed to store ranking", zap.String("application_id", r.ID), zap.Error(err))
		}
	}
	s.logger.Debug("job ranked", zap.String("job_id", jobID), zap.Int("pending", len(results)))
	return results, nil
}

// Search runs a keyword query over the job's applications. A non-positive limit uses the default.
func (s *Service) Search(ctx context.Context, jobID, query string, limit int, opts *keyword.SearchOptions) ([]models.SearchHit, error) {
	if s.index == nil {
		return nil, ErrSearchUnavailable
	}
	if _, err := s.storage.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	results, err := s.index.Search(ctx, jobID, query, limit, opts)
	if err != nil {
		return nil, err
	}
	hits := make([]models.SearchHit, 0, len(results))
	for _, r := range results {
		app, err := s.storage.GetApplication(ctx, r.ID)
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug("stale search hit", zap.String("id", r.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		hits = append(hits, models.SearchHit{Application: app, Score: r.Score})
	}
	return hits, nil
}

// SyncIndex rebuilds the keyword index from storage when it holds fewer documents than the
// store. It returns the number of applications indexed.
func (s *Service) SyncIndex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	indexed, err := s.index.DocCount()
	if err != nil {
		return 0, err
	}
	stored, err := s.storage.CountApplications(ctx)
	if err != nil {
		return 0, err
	}
	if int64(indexed) >= stored {
		return 0, nil
	}
	apps, err := s.storage.ListAllApplications(ctx)
	if err != nil {
		return 0, err
	}
	for _, app := range apps {
		if err := s.index.Index(ctx, app.ID, documentFor(app)); err != nil {
			return 0, fmt.Errorf("failed to index application %s: %w", app.ID, err)
		}
	}
	s.logger.Info("search index rebuilt", zap.Int("applications", len(apps)))
	return len(apps), nil
}

func (s *Service) indexApplication(ctx context.Context, app *models.Application) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, app.ID, documentFor(app)); err != nil {
		s.logger.Warn("failed to index application", zap.String("id", app.ID), zap.Error(err))
	}
}

func documentFor(app *models.Application) keyword.Document {
	return keyword.Document{JobID: app.JobID, Filename: app.Filename, Text: app.Text}
}

// Stats summarizes stored and indexed data.
type Stats struct {
	Jobs         int64  `json:"jobs"`
	Applications int64  `json:"applications"`
	Indexed      uint64 `json:"indexed"`
}

// Stats returns job, application and search index counts.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	jobCount, err := s.storage.CountJobs(ctx)
	if err != nil {
		return nil, err
	}
	appCount, err := s.storage.CountApplications(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Jobs: jobCount, Applications: appCount}
	if s.index != nil {
		if stats.Indexed, err = s.index.DocCount(); err != nil {
			return nil, err
		}
	}
	return stats, nil
}
