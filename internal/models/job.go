// Package models defines the job, application and request/response types shared by the
// storage, service and HTTP layers.
package models

import (
	"time"

	"github.com/hyperjump/resumerank/internal/ranking"
)

// Application statuses. Only pending applications are ranked.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Job is an open position with the description resumes are ranked against.
type Job struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Role        string    `json:"role,omitempty" db:"role"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// JobInput is the input for creating a job.
type JobInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=100000"`
	Role        string `json:"role,omitempty" validate:"max=200"`
}

// Application is one candidate's resume submitted to a job. Score, Rank and Analysis are
// set by the most recent ranking of the job.
type Application struct {
	ID        string            `json:"id" db:"id"`
	JobID     string            `json:"job_id" db:"job_id"`
	Filename  string            `json:"filename" db:"filename"`
	Text      string            `json:"text,omitempty" db:"text"`
	Status    string            `json:"status" db:"status"`
	Score     *float64          `json:"score,omitempty" db:"score"`
	Rank      *int              `json:"rank,omitempty" db:"rank"`
	Analysis  *ranking.Analysis `json:"analysis,omitempty" db:"analysis"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// ApplicationInput is the input for adding an application with already extracted text.
type ApplicationInput struct {
	Filename string `json:"filename" validate:"required,max=255"`
	Text     string `json:"text" validate:"required"`
}

// StatusInput changes an application's status.
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending accepted rejected"`
}
