package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jimezsa/jobsearch/internal/apperr"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/store"
	"github.com/rs/zerolog"
)

type fakeSource struct {
	name    string
	records []map[string]any
	err     error
	entered chan struct{}
	release chan struct{}
	params  []models.SearchParams
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(ctx context.Context, params models.SearchParams) ([]map[string]any, error) {
	f.params = append(f.params, params)
	if f.entered != nil {
		close(f.entered)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.records, f.err
}

func records(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{"job_id": fmt.Sprintf("job-%d", i)}
	}
	return out
}

func newService(src, fallback *fakeSource) *Service {
	opts := Options{Source: src, Logger: zerolog.Nop()}
	if fallback != nil {
		opts.Fallback = fallback
	}
	return NewService(opts)
}

func TestStartRunsSearchInBackground(t *testing.T) {
	src := &fakeSource{name: "cloud", records: records(37), entered: make(chan struct{}), release: make(chan struct{})}
	svc := newService(src, nil)
	defer svc.Close()

	accepted, err := svc.Start(models.SearchRequest{JobTitle: " Go Developer ", Location: "Berlin"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if accepted.SearchID == "" {
		t.Fatalf("expected a search id")
	}

	<-src.entered
	status, _ := svc.Status(context.Background())
	if !status.Running || status.Progress != progressFetching || status.SearchQuery != "Go Developer" {
		t.Fatalf("unexpected in-flight status %+v", status)
	}

	if _, err := svc.Start(models.SearchRequest{JobTitle: "x", Location: "y"}); !errors.Is(err, ErrInProgress) {
		t.Fatalf("expected ErrInProgress, got %v", err)
	}

	close(src.release)
	svc.Wait()

	status, _ = svc.Status(context.Background())
	if status.Running || status.Progress != progressDone || status.TotalJobs != 37 || status.Message != "Found 37 jobs" {
		t.Fatalf("unexpected final status %+v", status)
	}
	if src.params[0].MaxJobs != DefaultMaxJobs {
		t.Fatalf("expected default max jobs, got %d", src.params[0].MaxJobs)
	}
}

func TestStartRejectsMissingFields(t *testing.T) {
	svc := newService(&fakeSource{name: "cloud"}, nil)
	defer svc.Close()

	_, err := svc.Start(models.SearchRequest{JobTitle: "Go", Location: "  "})
	if apperr.KindOf(err) != apperr.KindInput {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestFallbackOnSourceFailure(t *testing.T) {
	src := &fakeSource{name: "cloud", err: errors.New("http 502")}
	fallback := &fakeSource{name: "mock", records: records(25)}
	svc := newService(src, fallback)
	defer svc.Close()

	if _, err := svc.Start(models.SearchRequest{JobTitle: "Go", Location: "Remote"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	svc.Wait()

	status, _ := svc.Status(context.Background())
	if status.TotalJobs != 25 {
		t.Fatalf("expected fallback postings, got %+v", status)
	}
}

func TestSourceFailureWithoutFallback(t *testing.T) {
	svc := newService(&fakeSource{name: "cloud", err: errors.New("http 502")}, nil)
	defer svc.Close()

	if _, err := svc.Start(models.SearchRequest{JobTitle: "Go", Location: "Remote"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	svc.Wait()

	status, _ := svc.Status(context.Background())
	if status.Running || status.TotalJobs != 0 || status.Message != "Search failed: http 502" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestResultsPagination(t *testing.T) {
	svc := newService(&fakeSource{name: "cloud", records: records(120)}, nil)
	defer svc.Close()
	ctx := context.Background()

	if _, err := svc.Start(models.SearchRequest{JobTitle: "Go", Location: "Remote"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	svc.Wait()

	page, err := svc.Results(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	if len(page.Jobs) != DefaultPerPage || page.Page != 1 || page.Total != 120 || !page.HasMore {
		t.Fatalf("unexpected first page %+v", page)
	}

	page, _ = svc.Results(ctx, 3, 50)
	if len(page.Jobs) != 20 || page.HasMore || page.Jobs[0]["job_id"] != "job-100" {
		t.Fatalf("unexpected last page: %d jobs has_more=%v", len(page.Jobs), page.HasMore)
	}

	page, _ = svc.Results(ctx, 9, 50)
	if len(page.Jobs) != 0 || page.Jobs == nil {
		t.Fatalf("expected empty non-nil page past the end")
	}
}

func TestStatusFromStoredResults(t *testing.T) {
	results := store.NewMemoryResults()
	_ = results.Put(context.Background(), store.Results{Query: "Go", Location: "Remote", Jobs: records(3), CreatedAt: time.Now()})
	svc := NewService(Options{Source: &fakeSource{name: "cloud"}, Results: results, Logger: zerolog.Nop()})
	defer svc.Close()

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Running || status.TotalJobs != 3 || status.SearchQuery != "Go" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestPurgeExpiresResults(t *testing.T) {
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	svc := NewService(Options{
		Source: &fakeSource{name: "cloud", records: records(5)},
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return now },
	})
	defer svc.Close()
	ctx := context.Background()

	if _, err := svc.Start(models.SearchRequest{JobTitle: "Go", Location: "Remote"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	svc.Wait()

	svc.Purge(time.Hour)
	if page, _ := svc.Results(ctx, 1, 50); page.Total != 5 {
		t.Fatalf("fresh results must survive, got %d", page.Total)
	}

	now = now.Add(2 * time.Hour)
	svc.Purge(time.Hour)
	if page, _ := svc.Results(ctx, 1, 50); page.Total != 0 {
		t.Fatalf("expected results to be purged, got %d", page.Total)
	}
	status, _ := svc.Status(ctx)
	if status.TotalJobs != 0 || status.Message != "Results expired" {
		t.Fatalf("unexpected status after purge %+v", status)
	}
}

func TestStartPurgeRejectsBadSchedule(t *testing.T) {
	svc := newService(&fakeSource{name: "cloud"}, nil)
	defer svc.Close()
	if err := svc.StartPurge("not a schedule", time.Hour); err == nil {
		t.Fatalf("expected schedule error")
	}
	if err := svc.StartPurge("@every 1h", time.Hour); err != nil {
		t.Fatalf("StartPurge() error = %v", err)
	}
}
