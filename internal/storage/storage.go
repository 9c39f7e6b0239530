// Package storage defines the persistence interface for jobs and applications.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/resumerank/internal/models"
	"github.com/hyperjump/resumerank/internal/ranking"
)

// ErrNotFound is returned when a job or application does not exist.
var ErrNotFound = errors.New("not found")

// ApplicationFilter narrows ListApplications. The zero value lists every application of the
// job in submission order.
type ApplicationFilter struct {
	Status string
	// ByRank orders ranked applications first by ascending rank.
	ByRank bool
}

// Storage defines job and application persistence operations.
type Storage interface {
	// Job operations
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context, offset, limit int) ([]*models.Job, error)

	// Application operations
	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	ListApplications(ctx context.Context, jobID string, filter ApplicationFilter) ([]*models.Application, error)
	ListAllApplications(ctx context.Context) ([]*models.Application, error)
	UpdateApplicationRanking(ctx context.Context, id string, score float64, rank int, analysis *ranking.Analysis) error
	UpdateApplicationStatus(ctx context.Context, id, status string) error

	// Stats
	CountJobs(ctx context.Context) (int64, error)
	CountApplications(ctx context.Context) (int64, error)

	Close() error
}
