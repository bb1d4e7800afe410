package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/search"
	"github.com/jimezsa/jobsearch/internal/store"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	n       int
	release chan struct{}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Search(ctx context.Context, params models.SearchParams) ([]map[string]any, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	out := make([]map[string]any, f.n)
	for i := range out {
		out[i] = map[string]any{
			"job_id":    fmt.Sprintf("job-%d", i),
			"job_title": params.Query,
			"company":   fmt.Sprintf("Company %d", i),
			"location":  params.Location,
		}
	}
	return out, nil
}

type fixture struct {
	server *Server
	search *search.Service
}

func newFixture(t *testing.T, src *fakeSource) fixture {
	t.Helper()
	svc := search.NewService(search.Options{Source: src, Logger: zerolog.Nop()})
	t.Cleanup(svc.Close)
	srv := New(Options{
		Search: svc,
		Saved:  store.NewFileStore(t.TempDir()),
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC) },
	})
	return fixture{server: srv, search: svc}
}

func (f fixture) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range header {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, &fakeSource{})
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestSearchStatusResults(t *testing.T) {
	f := newFixture(t, &fakeSource{n: 37})

	rec := f.do(t, http.MethodPost, "/api/jobs/search", `{"jobTitle":"Go Developer","location":"Berlin"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var accepted models.SearchAccepted
	decode(t, rec, &accepted)
	if accepted.SearchID == "" {
		t.Fatalf("expected search id")
	}
	f.search.Wait()

	rec = f.do(t, http.MethodGet, "/api/jobs/status", "", nil)
	var status models.SearchStatus
	decode(t, rec, &status)
	if status.Running || status.TotalJobs != 37 || status.SearchQuery != "Go Developer" {
		t.Fatalf("unexpected status %+v", status)
	}

	rec = f.do(t, http.MethodGet, "/api/jobs/results?per_page=20&page=2", "", nil)
	var page models.ResultsPage
	decode(t, rec, &page)
	if len(page.Jobs) != 17 || page.Total != 37 || page.HasMore || page.PerPage != 20 {
		t.Fatalf("unexpected page %+v", page)
	}

	rec = f.do(t, http.MethodGet, "/api/jobs/results?per_page=abc", "", nil)
	decode(t, rec, &page)
	if page.PerPage != search.DefaultPerPage || page.Page != 1 {
		t.Fatalf("expected defaults for bad query, got %+v", page)
	}
}

func TestSearchValidation(t *testing.T) {
	f := newFixture(t, &fakeSource{})

	rec := f.do(t, http.MethodPost, "/api/jobs/search", `{"jobTitle":"Go Developer"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing location, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/api/jobs/search", `{`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", rec.Code)
	}
}

func TestSearchInProgress(t *testing.T) {
	src := &fakeSource{n: 1, release: make(chan struct{})}
	f := newFixture(t, src)
	body := `{"jobTitle":"Go","location":"Remote"}`

	if rec := f.do(t, http.MethodPost, "/api/jobs/search", body, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/jobs/search", body, nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	close(src.release)
	f.search.Wait()
}

func TestSavedJobsRequireUser(t *testing.T) {
	f := newFixture(t, &fakeSource{})
	if rec := f.do(t, http.MethodGet, "/api/saved-jobs/load", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/saved-jobs/save", `{"jobs":[]}`, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSavedJobsRoundTrip(t *testing.T) {
	f := newFixture(t, &fakeSource{})
	user := map[string]string{UserHeader: "Dev@Example.com"}

	rec := f.do(t, http.MethodGet, "/api/saved-jobs/load", "", user)
	var empty map[string]any
	decode(t, rec, &empty)
	if empty["totalJobs"] != float64(0) || empty["message"] != "No saved jobs found" {
		t.Fatalf("unexpected empty load %v", empty)
	}

	body := `{"jobs":[
	  {"job_id":"abc123","job_title":"Go Developer","company":"Acme","location":"Berlin","stage":"applied"},
	  {"job_title":"SRE","company":"Beta","location":"Remote"}
	]}`
	rec = f.do(t, http.MethodPost, "/api/saved-jobs/save", body, user)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var saved map[string]any
	decode(t, rec, &saved)
	if saved["totalJobs"] != float64(2) || saved["userEmail"] != "dev@example.com" || saved["message"] != "Saved 2 jobs successfully" {
		t.Fatalf("unexpected save response %v", saved)
	}

	rec = f.do(t, http.MethodGet, "/api/saved-jobs/load", "", user)
	var loaded struct {
		Success   bool         `json:"success"`
		Jobs      []models.Job `json:"jobs"`
		TotalJobs int          `json:"totalJobs"`
		UpdatedAt *time.Time   `json:"updatedAt"`
	}
	decode(t, rec, &loaded)
	if !loaded.Success || loaded.TotalJobs != 2 || loaded.UpdatedAt == nil {
		t.Fatalf("unexpected load %+v", loaded)
	}
	if loaded.Jobs[0].Stage != models.StageApplied || loaded.Jobs[1].JobID == "" {
		t.Fatalf("expected normalized jobs, got %+v", loaded.Jobs)
	}
}

func TestSaveRejectsNonArray(t *testing.T) {
	f := newFixture(t, &fakeSource{})
	user := map[string]string{UserHeader: "dev@example.com"}

	for _, body := range []string{`{"jobs":"abc"}`, `{}`, `{"jobs":[1,2]}`, `not json`} {
		rec := f.do(t, http.MethodPost, "/api/saved-jobs/save", body, user)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, &fakeSource{})
	rec := f.do(t, http.MethodOptions, "/api/saved-jobs/load", "", map[string]string{
		"Origin":                         "http://localhost:5173",
		"Access-Control-Request-Method":  http.MethodGet,
		"Access-Control-Request-Headers": UserHeader,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
