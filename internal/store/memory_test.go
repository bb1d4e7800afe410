package store

import (
	"context"
	"testing"
	"time"

	"github.com/jimezsa/jobsearch/internal/config"
)

func TestMemoryResultsPurge(t *testing.T) {
	s := NewMemoryResults()
	ctx := context.Background()
	created := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

	if _, ok, _ := s.Latest(ctx); ok {
		t.Fatalf("expected no results initially")
	}
	if err := s.Put(ctx, Results{SearchID: "s1", CreatedAt: created, Jobs: []map[string]any{{"job_id": "1"}}}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	removed, err := s.Purge(ctx, created)
	if err != nil || removed {
		t.Fatalf("results at the cutoff must be kept, got %v %v", removed, err)
	}
	got, ok, _ := s.Latest(ctx)
	if !ok || got.SearchID != "s1" {
		t.Fatalf("expected latest results, got %+v", got)
	}

	removed, err = s.Purge(ctx, created.Add(time.Minute))
	if err != nil || !removed {
		t.Fatalf("expected purge, got %v %v", removed, err)
	}
	if _, ok, _ := s.Latest(ctx); ok {
		t.Fatalf("expected results to be gone")
	}
}

func TestOpenRejectsUnknownBackends(t *testing.T) {
	ctx := context.Background()
	if _, err := OpenSaved(ctx, config.Config{SavedStore: "dynamo"}); err == nil {
		t.Fatalf("expected error for unknown saved store")
	}
	if _, err := OpenResults(ctx, config.Config{ResultStore: "s3"}); err == nil {
		t.Fatalf("expected error for unknown result store")
	}
	if _, err := OpenSaved(ctx, config.Config{SavedStore: "redis"}); err == nil {
		t.Fatalf("expected error without redis_url")
	}
	if _, err := OpenSaved(ctx, config.Config{SavedStore: "postgres"}); err == nil {
		t.Fatalf("expected error without database_url")
	}
}

func TestOpenDefaults(t *testing.T) {
	ctx := context.Background()
	saved, err := OpenSaved(ctx, config.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("OpenSaved() error = %v", err)
	}
	if _, ok := saved.(*FileStore); !ok {
		t.Fatalf("expected file store, got %T", saved)
	}
	results, err := OpenResults(ctx, config.Config{})
	if err != nil {
		t.Fatalf("OpenResults() error = %v", err)
	}
	if _, ok := results.(*MemoryResults); !ok {
		t.Fatalf("expected memory results, got %T", results)
	}
}
