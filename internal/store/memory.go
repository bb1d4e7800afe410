package store

import (
	"context"
	"sync"
	"time"
)

// MemoryResults keeps the latest results in process.
type MemoryResults struct {
	mu      sync.RWMutex
	results Results
	ok      bool
}

func NewMemoryResults() *MemoryResults {
	return &MemoryResults{}
}

func (s *MemoryResults) Put(_ context.Context, results Results) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
	s.ok = true
	return nil
}

func (s *MemoryResults) Latest(context.Context) (Results, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.results, s.ok, nil
}

func (s *MemoryResults) Purge(_ context.Context, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ok || !s.results.CreatedAt.Before(cutoff) {
		return false, nil
	}
	s.results = Results{}
	s.ok = false
	return true, nil
}

func (s *MemoryResults) Close() error {
	return nil
}
