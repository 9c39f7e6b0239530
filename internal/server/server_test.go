package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hyperjump/resumerank/internal/config"
	"github.com/hyperjump/resumerank/internal/embedding"
	"github.com/hyperjump/resumerank/internal/extract"
	"github.com/hyperjump/resumerank/internal/jobs"
	"github.com/hyperjump/resumerank/internal/keyword"
	"github.com/hyperjump/resumerank/internal/matcher"
	"github.com/hyperjump/resumerank/internal/metrics"
	"github.com/hyperjump/resumerank/internal/models"
	"github.com/hyperjump/resumerank/internal/ranking"
	"github.com/hyperjump/resumerank/internal/skills"
	"github.com/hyperjump/resumerank/internal/storage"
)

const cloudJD = "Looking for an engineer with Python, Docker, Kubernetes and AWS."

type testEnv struct {
	handler  http.Handler
	store    *storage.SQLiteStorage
	provider *embedding.Provider
}

func newTestEnv(t *testing.T, provider *embedding.Provider, maxUploadMB int) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	idx, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	if provider == nil {
		provider = embedding.NewStaticProvider(embedding.NewHashEmbedder(384))
	}
	vocab := skills.Default()
	ranker := ranking.NewRanker(provider, vocab)
	svc := jobs.NewService(store, ranker, extract.NewExtractor(), jobs.WithIndex(idx))
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics()
	if err := m.Register(reg); err != nil {
		t.Fatal(err)
	}
	srv := NewServer(ranker, matcher.New(vocab, nil), svc,
		&config.ServerConfig{Host: "localhost", Port: 8080, MaxUploadMB: maxUploadMB}, nil,
		WithMetrics(m, reg),
		WithModelStatus(provider),
		WithDiskPaths(storage.DatabaseFiles(filepath.Join(dir, "db.sqlite"))...),
	)
	return &testEnv{handler: srv.Handler(), store: store, provider: provider}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func (e *testEnv) upload(t *testing.T, path string, fields map[string]string, field string, files map[string]string, order []string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, field, files, order)
	r := httptest.NewRequest(http.MethodPost, path, body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func multipartBody(t *testing.T, fields map[string]string, field string, files map[string]string, order []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range order {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestServer_StartStop(t *testing.T) {
	newServer := func() *Server {
		return NewServer(nil, nil, nil, &config.ServerConfig{Host: "127.0.0.1", Port: 0}, nil)
	}

	t.Run("stop before start", func(t *testing.T) {
		srv := newServer()
		if err := srv.Stop(context.Background()); err != nil {
			t.Fatalf("Stop: %v", err)
		}
		if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Start after Stop = %v, want ErrServerClosed", err)
		}
	})

	t.Run("concurrent", func(t *testing.T) {
		srv := newServer()
		errc := make(chan error, 1)
		go func() { errc <- srv.Start() }()
		if err := srv.Stop(context.Background()); err != nil {
			t.Fatalf("Stop: %v", err)
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Start = %v, want ErrServerClosed", err)
		}
	})
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, nil, 20)
	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}
}

func TestHandleRank(t *testing.T) {
	env := newTestEnv(t, nil, 20)
	req := map[string]any{
		"job_description": cloudJD,
		"resumes": []map[string]string{
			{"id": "b", "filename": "b.txt", "text": "Pastry chef"},
			{"id": "a", "filename": "a.txt", "text": "Python Docker Kubernetes AWS, 6 years of experience"},
		},
	}
	w := env.do(t, http.MethodPost, "/api/v1/rank", req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	resp := decode[models.RankResponse](t, w)
	if resp.Total != 2 || resp.Results[0].ID != "a" || resp.Results[0].Rank != 1 || resp.Results[1].Rank != 2 {
		t.Errorf("unexpected ranking: %+v", resp.Results)
	}
	if resp.Results[0].Text != "" {
		t.Error("text should be omitted unless include_text is set")
	}
	if resp.Results[0].Analysis.ExperienceYears != 6 {
		t.Errorf("experience = %v", resp.Results[0].Analysis.ExperienceYears)
	}

	req["include_text"] = true
	resp = decode[models.RankResponse](t, env.do(t, http.MethodPost, "/api/v1/rank", req))
	if resp.Results[0].Text == "" {
		t.Error("include_text should keep resume text")
	}
}

func TestHandleRank_EmptyResumes(t *testing.T) {
	env := newTestEnv(t, nil, 20)
	w := env.do(t, http.MethodPost, "/api/v1/rank", map[string]any{"job_description": cloudJD, "resumes": []any{}})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"results":[]`) {
		t.Errorf("empty ranking: %d %s", w.Code, w.Body.String())
	}
}

func TestHandleRank_Errors(t *testing.T) {
	failing := embedding.NewProvider(func() (embedding.Embedder, error) {
		return nil, errors.New("model file missing")
	})
	tests := []struct {
		name     string
		provider *embedding.Provider
		body     any
		want     int
	}{
		{"malformed json", nil, "{", http.StatusBadRequest},
		{"negative weight", nil, map[string]any{
			"job_description": cloudJD,
			"resumes":         []map[string]string{{"filename": "a", "text": "python"}},
			"weights":         map[string]float64{"semantic": -1, "skills": 1},
		}, http.StatusBadRequest},
		{"model unavailable", failing, map[string]any{
			"job_description": cloudJD,
			"resumes":         []map[string]string{{"filename": "a", "text": "python"}},
		}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.provider, 20)
			w := env.do(t, http.MethodPost, "/api/v1/rank", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("missing error body: %s", w.Body.String())
			}
		})
	}
}

func TestHandleRankUpload(t *testing.T) {
	env := newTestEnv(t, nil, 20)
	files := map[string]string{
		"weak.txt":   "Pastry chef",
		"strong.md":  "Python, Docker, Kubernetes and AWS. 6 years of experience.",
		"strong2.md": "Python, Docker, Kubernetes and AWS. 6 years of experience.",
	}
	w := env.upload(t, "/api/v1/rank/upload",
		map[string]string{"job_description": cloudJD, "semantic_weight": "0", "skills_weight": "1"},
		"resumes", files, []string{"weak.txt", "strong.md", "strong2.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	resp := decode[models.RankResponse](t, w)
	if resp.Total != 3 {
		t.Fatalf("total = %d", resp.Total)
	}
	if resp.Results[0].Filename != "strong.md" || resp.Results[1].Filename != "strong2.md" {
		t.Errorf("tie should keep upload order: %s, %s", resp.Results[0].Filename, resp.Results[1].Filename)
	}
	if resp.Results[0].Score != 100 {
		t.Errorf("skills-only score = %v, want 100", resp.Results[0].Score)
	}
	wantID := ranking.DeriveID("strong.md", "python, docker, kubernetes and aws. 6 years of experience.")
	if resp.Results[0].ID != wantID {
		t.Errorf("id = %s, want derived %s", resp.Results[0].ID, wantID)
	}
}

func TestHandleRankUpload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		files  map[string]string
		want   int
	}{
		{"no files", map[string]string{"job_description": cloudJD}, nil, http.StatusBadRequest},
		{"unsupported", nil, map[string]string{"cv.exe": "MZ"}, http.StatusBadRequest},
		{"bad pdf", nil, map[string]string{"cv.pdf": "not a pdf"}, http.StatusBadRequest},
		{"half weights", map[string]string{"semantic_weight": "1"}, map[string]string{"a.txt": "go"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, 20)
			var order []string
			for name := range tt.files {
				order = append(order, name)
			}
			w := env.upload(t, "/api/v1/rank/upload", tt.fields, "resumes", tt.files, order)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestHandleRankUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t, nil, 1)
	big := strings.Repeat("python ", 300000)
	w := env.upload(t, "/api/v1/rank/upload", map[string]string{"job_description": cloudJD},
		"resumes", map[string]string{"big.txt": big}, []string{"big.txt"})
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestHandleAnalyze(t *testing.T) {
	env := newTestEnv(t, nil, 20)
	w := env.upload(t, "/api/v1/analyze",
		map[string]string{"job_description": "python, docker and aws", "role": "Backend Engineer"},
		"resume", map[string]string{"me.txt": "Python and AWS"}, []string{"me.txt"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	resp := decode[models.AnalyzeResponse](t, w)
	if resp.Filename != "me.txt" || resp.Analysis == nil {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Analysis.MatchScore != 66.67 {
		t.Errorf("match score = %v, want 66.67", resp.Analysis.MatchScore)
	}
	if resp.Analysis.Role != "Backend Engineer" {
		t.Errorf("role = %q", resp.Analysis.Role)
	}
	if len(resp.Analysis.MissingSkills) != 1 || resp.Analysis.MissingSkills[0] != "docker" {
		t.Errorf("missing = %v", resp.Analysis.MissingSkills)
	}
}

func TestJobsFlow(t *testing.T) {
	env := newTestEnv(t, nil, 20)

	w := env.do(t, http.MethodPost, "/api/v1/jobs", map[string]string{"title": "Cloud Engineer", "description": cloudJD})
	if w.Code != http.StatusCreated {
		t.Fatalf("create job: %d %s", w.Code, w.Body.String())
	}
	job := decode[models.Job](t, w)

	w = env.do(t, http.MethodPost, "/api/v1/jobs/"+job.ID+"/applications",
		map[string]string{"filename": "chef.txt", "text": "Pastry chef"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add json application: %d %s", w.Code, w.Body.String())
	}
	chef := decode[models.Application](t, w)

	w = env.upload(t, "/api/v1/jobs/"+job.ID+"/applications", nil, "resume",
		map[string]string{"dev.md": "Python Docker Kubernetes AWS"}, []string{"dev.md"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add file application: %d %s", w.Code, w.Body.String())
	}
	dev := decode[models.Application](t, w)

	w = env.do(t, http.MethodPost, "/api/v1/jobs/"+job.ID+"/rank", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rank job: %d %s", w.Code, w.Body.String())
	}
	ranked := decode[models.RankResponse](t, w)
	if ranked.Total != 2 || ranked.Results[0].ID != dev.ID {
		t.Errorf("rank job results = %+v", ranked.Results)
	}

	w = env.do(t, http.MethodPut, "/api/v1/jobs/"+job.ID+"/applications/"+chef.ID+"/status",
		map[string]string{"status": "rejected"})
	if w.Code != http.StatusOK || decode[models.Application](t, w).Status != models.StatusRejected {
		t.Errorf("update status: %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID+"/applications", nil)
	list := decode[struct {
		Applications []models.Application `json:"applications"`
	}](t, w)
	if len(list.Applications) != 2 || list.Applications[0].ID != dev.ID || list.Applications[0].Rank == nil {
		t.Errorf("applications should be listed by rank: %+v", list.Applications)
	}

	w = env.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID+"/applications/search?q=kubernetes", nil)
	search := decode[models.SearchResponse](t, w)
	if search.Total != 1 || search.Hits[0].Application.ID != dev.ID {
		t.Errorf("search = %+v", search)
	}
	w = env.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID+"/applications/search?q=kubernets&fuzzy=true", nil)
	if decode[models.SearchResponse](t, w).Total != 1 {
		t.Error("fuzzy search should tolerate a typo")
	}

	w = env.do(t, http.MethodGet, "/api/v1/jobs?limit=10", nil)
	jobsList := decode[struct {
		Jobs  []models.Job `json:"jobs"`
		Total int64        `json:"total"`
	}](t, w)
	if jobsList.Total != 1 || len(jobsList.Jobs) != 1 {
		t.Errorf("list jobs = %+v", jobsList)
	}

	w = env.do(t, http.MethodGet, "/api/v1/status", nil)
	status := decode[map[string]any](t, w)
	if status["jobs"] != float64(1) || status["applications"] != float64(2) || status["indexed"] != float64(2) {
		t.Errorf("status = %v", status)
	}
	if status["model_status"] != embedding.StatusReady {
		t.Errorf("model_status = %v", status["model_status"])
	}
	if _, ok := status["disk_usage_bytes"]; !ok {
		t.Error("disk_usage_bytes missing")
	}

	w = env.do(t, http.MethodGet, "/metrics", nil)
	if !strings.Contains(w.Body.String(), `resumerank_rank_requests_total{source="job",status="success"} 1`) {
		t.Errorf("metrics missing job rank counter:\n%s", w.Body.String())
	}
}

func TestJobsErrors(t *testing.T) {
	env := newTestEnv(t, nil, 20)
	w := env.do(t, http.MethodPost, "/api/v1/jobs", map[string]string{"title": "Engineer"})
	job := decode[models.Job](t, w)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing job", http.MethodGet, "/api/v1/jobs/nope", nil, http.StatusNotFound},
		{"job without title", http.MethodPost, "/api/v1/jobs", map[string]string{"description": "x"}, http.StatusBadRequest},
		{"rank missing job", http.MethodPost, "/api/v1/jobs/nope/rank", nil, http.StatusNotFound},
		{"application to missing job", http.MethodPost, "/api/v1/jobs/nope/applications", map[string]string{"filename": "a", "text": "b"}, http.StatusNotFound},
		{"empty application", http.MethodPost, "/api/v1/jobs/" + job.ID + "/applications", map[string]string{"filename": "a", "text": "   "}, http.StatusBadRequest},
		{"bad status", http.MethodPut, "/api/v1/jobs/" + job.ID + "/applications/x/status", map[string]string{"status": "hired"}, http.StatusBadRequest},
		{"status of missing application", http.MethodPut, "/api/v1/jobs/" + job.ID + "/applications/x/status", map[string]string{"status": "accepted"}, http.StatusNotFound},
		{"search without query", http.MethodGet, "/api/v1/jobs/" + job.ID + "/applications/search", nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/v1/jobs?limit=-1", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", models.ErrValidation), http.StatusBadRequest},
		{ranking.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("%w: %w", ranking.ErrRankingUnavailable, embedding.ErrModelUnavailable), http.StatusServiceUnavailable},
		{jobs.ErrSearchUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("job 1: %w", storage.ErrNotFound), http.StatusNotFound},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestParseWeights(t *testing.T) {
	tests := []struct {
		semantic, skills string
		want             *ranking.Weights
		wantErr          bool
	}{
		{"", "", nil, false},
		{"0.5", "0.5", &ranking.Weights{Semantic: 0.5, Skills: 0.5}, false},
		{"0", "1", &ranking.Weights{Semantic: 0, Skills: 1}, false},
		{"1", "", nil, true},
		{"abc", "1", nil, true},
		{"-1", "1", nil, true},
	}
	for _, tt := range tests {
		got, err := parseWeights(tt.semantic, tt.skills)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseWeights(%q, %q) err = %v", tt.semantic, tt.skills, err)
			continue
		}
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("parseWeights(%q, %q) = %+v, want %+v", tt.semantic, tt.skills, got, tt.want)
		}
	}
}
