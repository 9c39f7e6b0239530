package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/resumerank/internal/models"
	"github.com/hyperjump/resumerank/internal/ranking"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		text TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		score REAL,
		rank INTEGER,
		analysis TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_applications_job_status ON applications(job_id, status);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateJob inserts a job.
func (s *SQLiteStorage) CreateJob(ctx context.Context, job *models.Job) error {
	job.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, title, description, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		job.ID, job.Title, job.Description, job.Role, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// GetJob returns a job by ID.
func (s *SQLiteStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, role, created_at FROM jobs WHERE id = ?`, id,
	).Scan(&job.ID, &job.Title, &job.Description, &job.Role, &job.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns jobs newest first with offset and limit.
func (s *SQLiteStorage) ListJobs(ctx context.Context, offset, limit int) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, role, created_at
		 FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]*models.Job, 0)
	for rows.Next() {
		var job models.Job
		if err := rows.Scan(&job.ID, &job.Title, &job.Description, &job.Role, &job.CreatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// CreateApplication inserts an application; an empty status becomes pending.
func (s *SQLiteStorage) CreateApplication(ctx context.Context, app *models.Application) error {
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (id, job_id, filename, text, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		app.ID, app.JobID, app.Filename, app.Text, app.Status, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

const applicationColumns = `id, job_id, filename, text, status, score, rank, analysis, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app      models.Application
		score    sql.NullFloat64
		rank     sql.NullInt64
		analysis sql.NullString
	)
	if err := row.Scan(&app.ID, &app.JobID, &app.Filename, &app.Text, &app.Status,
		&score, &rank, &analysis, &app.CreatedAt, &app.UpdatedAt); err != nil {
		return nil, err
	}
	if score.Valid {
		app.Score = &score.Float64
	}
	if rank.Valid {
		r := int(rank.Int64)
		app.Rank = &r
	}
	if analysis.Valid && analysis.String != "" {
		var a ranking.Analysis
		if err := json.Unmarshal([]byte(analysis.String), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}
		app.Analysis = &a
	}
	return &app, nil
}

// GetApplication returns an application by ID.
func (s *SQLiteStorage) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	return app, err
}

// ListApplications returns the applications of a job.
func (s *SQLiteStorage) ListApplications(ctx context.Context, jobID string, filter ApplicationFilter) ([]*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE job_id = ?`
	args := []any{jobID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.ByRank {
		query += ` ORDER BY rank IS NULL, rank, rowid`
	} else {
		query += ` ORDER BY rowid`
	}
	return s.queryApplications(ctx, query, args...)
}

// ListAllApplications returns every stored application in submission order.
func (s *SQLiteStorage) ListAllApplications(ctx context.Context) ([]*models.Application, error) {
	return s.queryApplications(ctx, `SELECT `+applicationColumns+` FROM applications ORDER BY rowid`)
}

func (s *SQLiteStorage) queryApplications(ctx context.Context, query string, args ...any) ([]*models.Application, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]*models.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// UpdateApplicationRanking stores the outcome of ranking an application.
func (s *SQLiteStorage) UpdateApplicationRanking(ctx context.Context, id string, score float64, rank int, analysis *ranking.Analysis) error {
	var analysisJSON sql.NullString
	if analysis != nil {
		data, err := json.Marshal(analysis)
		if err != nil {
			return fmt.Errorf("failed to marshal analysis: %w", err)
		}
		analysisJSON = sql.NullString{String: string(data), Valid: true}
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE applications SET score = ?, rank = ?, analysis = ?, updated_at = ? WHERE id = ?`,
		score, rank, analysisJSON, time.Now(), id,
	)
	return expectOneRow(result, err, "application", id)
}

// UpdateApplicationStatus sets an application's status.
func (s *SQLiteStorage) UpdateApplicationStatus(ctx context.Context, id, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE applications SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	return expectOneRow(result, err, "application", id)
}

func expectOneRow(result sql.Result, err error, kind, id string) error {
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

// CountJobs returns the total number of jobs.
func (s *SQLiteStorage) CountJobs(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count)
	return count, err
}

// CountApplications returns the total number of applications.
func (s *SQLiteStorage) CountApplications(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
