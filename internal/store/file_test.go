package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jimezsa/jobsearch/internal/models"
)

func TestFileStoreSaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "saved")
	s := NewFileStore(dir)
	fixed := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	jobs := []models.Job{{JobID: "abc123", Title: "SRE", Company: "Acme", Stage: models.StageApplied}}
	saved, err := s.Save(ctx, " Dev@Example.com ", jobs)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.TotalJobs != 1 || saved.UserEmail != "dev@example.com" || !saved.UpdatedAt.Equal(fixed) {
		t.Fatalf("unexpected save result %+v", saved)
	}

	got, err := s.Load(ctx, "dev@example.com")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.TotalJobs != 1 || got.Jobs[0].JobID != "abc123" || got.Jobs[0].Stage != models.StageApplied {
		t.Fatalf("unexpected jobs read back: %+v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "dev@example.com.json")); err != nil {
		t.Fatalf("expected per-user file: %v", err)
	}
}

func TestFileStoreLastWriterWins(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx := context.Background()

	if _, err := s.Save(ctx, "a@example.com", []models.Job{{JobID: "1"}, {JobID: "2"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := s.Save(ctx, "a@example.com", nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.TotalJobs != 0 || got.Jobs == nil {
		t.Fatalf("expected empty non-nil list, got %+v", got)
	}
}

func TestFileStoreMissingUser(t *testing.T) {
	s := NewFileStore(t.TempDir())
	got, err := s.Load(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.TotalJobs != 0 || len(got.Jobs) != 0 {
		t.Fatalf("expected empty list for unknown user, got %+v", got)
	}
	if _, err := s.Load(context.Background(), "  "); !errors.Is(err, ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
}

func TestFileNameStaysInDir(t *testing.T) {
	if got := fileName("../../etc/passwd"); filepath.Base(got) != got {
		t.Fatalf("file name escapes directory: %q", got)
	}
}

func TestReadSavedAllowMissing(t *testing.T) {
	got, err := ReadSavedAllowMissing(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("ReadSavedAllowMissing() error = %v", err)
	}
	if len(got.Jobs) != 0 {
		t.Fatalf("expected empty jobs for missing file, got %d", len(got.Jobs))
	}
}

func TestFileStoreDelete(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx := context.Background()

	if err := s.Delete(ctx, "a@example.com"); err != nil {
		t.Fatalf("deleting a missing document: %v", err)
	}
	if _, err := s.Save(ctx, "a@example.com", []models.Job{{JobID: "1"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !s.Exists("A@example.com") {
		t.Fatalf("expected document to exist")
	}
	if err := s.Delete(ctx, "a@example.com"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if s.Exists("a@example.com") {
		t.Fatalf("expected document to be gone")
	}
}
