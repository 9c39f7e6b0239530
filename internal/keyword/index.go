// Package keyword provides full-text search over application resumes.
package keyword

import "context"

// Document is the searchable view of an application.
type Document struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// FilenameBoost multiplies the contribution of filename matches. Values <= 1 mean no boost.
	FilenameBoost float64
	// RequireAll matches only resumes containing every query term.
	RequireAll bool
	// Fuzziness is the maximum edit distance per term (0 disables fuzzy matching, max 2).
	Fuzziness int
}

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Score float64
}

// Index defines keyword indexing and search operations.
type Index interface {
	Index(ctx context.Context, id string, doc Document) error
	// Search returns up to limit hits; an empty jobID searches every job.
	Search(ctx context.Context, jobID, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}
