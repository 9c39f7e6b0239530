package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/resumerank/internal/normalize"
	"github.com/hyperjump/resumerank/internal/ranking"
)

// parseMultipart parses a multipart body, keeping up to the upload limit in memory.
func (s *Server) parseMultipart(r *http.Request) error {
	maxMemory := s.config.MaxUploadBytes()
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("%w: invalid multipart form: %w", errBadRequest, err)
	}
	return nil
}

// extractUploads converts uploaded files to resumes in parallel. Output order matches files.
func (s *Server) extractUploads(ctx context.Context, files []*multipart.FileHeader) ([]ranking.Resume, error) {
	resumes := make([]ranking.Resume, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, fh := range files {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			text, err := s.extractFile(fh)
			if err != nil {
				return fmt.Errorf("%s: %w", fh.Filename, err)
			}
			filename := filepath.Base(fh.Filename)
			resumes[i] = ranking.Resume{
				ID:       ranking.DeriveID(filename, text),
				Filename: filename,
				Text:     text,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resumes, nil
}

func (s *Server) extractFile(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	text, err := s.extractor.ExtractBytes(content, filepath.Ext(fh.Filename))
	if err != nil {
		return "", err
	}
	return normalize.Clean(text), nil
}

// parseWeights reads optional form weights. Both must be given together.
func parseWeights(semantic, skills string) (*ranking.Weights, error) {
	semantic, skills = strings.TrimSpace(semantic), strings.TrimSpace(skills)
	if semantic == "" && skills == "" {
		return nil, nil
	}
	if semantic == "" || skills == "" {
		return nil, fmt.Errorf("%w: semantic_weight and skills_weight must be given together", errBadRequest)
	}
	sw, err := strconv.ParseFloat(semantic, 64)
	if err != nil || sw < 0 {
		return nil, fmt.Errorf("%w: semantic_weight must be a non-negative number", errBadRequest)
	}
	kw, err := strconv.ParseFloat(skills, 64)
	if err != nil || kw < 0 {
		return nil, fmt.Errorf("%w: skills_weight must be a non-negative number", errBadRequest)
	}
	return &ranking.Weights{Semantic: sw, Skills: kw}, nil
}
