package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jimezsa/jobsearch/internal/models"
)

// FileStore keeps one JSON document per user under dir.
type FileStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

func (s *FileStore) Load(_ context.Context, user string) (models.SavedJobs, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return models.SavedJobs{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := ReadSavedAllowMissing(s.path(user))
	if err != nil {
		return models.SavedJobs{}, err
	}
	return savedJobs(user, doc.Jobs, doc.UpdatedAt), nil
}

func (s *FileStore) Save(_ context.Context, user string, jobs []models.Job) (models.SavedJobs, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return models.SavedJobs{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return models.SavedJobs{}, err
	}
	doc := savedJobs(user, jobs, s.now().UTC())
	if err := WriteSaved(s.path(user), doc); err != nil {
		return models.SavedJobs{}, err
	}
	return doc, nil
}

// Delete removes user's document. A missing document is not an error.
func (s *FileStore) Delete(_ context.Context, user string) error {
	user, err := normalizeUser(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(user)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether user has a document.
func (s *FileStore) Exists(user string) bool {
	user, err := normalizeUser(user)
	if err != nil {
		return false
	}
	_, err = os.Stat(s.path(user))
	return err == nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(user string) string {
	return filepath.Join(s.dir, fileName(user))
}

// fileName keeps the address readable while staying a single path element.
func fileName(user string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	return r.Replace(user) + ".json"
}

// ReadSaved reads a saved-jobs document from path.
func ReadSaved(path string) (models.SavedJobs, error) {
	if strings.TrimSpace(path) == "" {
		return models.SavedJobs{}, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.SavedJobs{}, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return models.SavedJobs{Jobs: []models.Job{}}, nil
	}

	var doc models.SavedJobs
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.SavedJobs{}, err
	}
	if doc.Jobs == nil {
		doc.Jobs = []models.Job{}
	}
	return doc, nil
}

// ReadSavedAllowMissing treats a missing file as an empty list.
func ReadSavedAllowMissing(path string) (models.SavedJobs, error) {
	doc, err := ReadSaved(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.SavedJobs{Jobs: []models.Job{}}, nil
		}
		return models.SavedJobs{}, err
	}
	return doc, nil
}

// WriteSaved writes doc as pretty JSON.
func WriteSaved(path string, doc models.SavedJobs) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is required")
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
