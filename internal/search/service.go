// Package search runs upstream searches for the HTTP service and keeps the
// latest results. Only one search runs at a time.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jimezsa/jobsearch/internal/apperr"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/source"
	"github.com/jimezsa/jobsearch/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxJobs = 150
	DefaultPerPage = 50

	progressStarted  = 10
	progressFetching = 40
	progressDone     = 100
)

var ErrInProgress = errors.New("search already in progress")

type Options struct {
	Source source.Source
	// Fallback answers when Source fails. Nil disables the fallback.
	Fallback source.Source
	Results  store.ResultStore
	MaxJobs  int
	Logger   zerolog.Logger
	Now      func() time.Time
}

type Service struct {
	opts Options

	mu     sync.Mutex
	status models.SearchStatus
	known  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	cron   *cron.Cron
}

func NewService(opts Options) *Service {
	if opts.Results == nil {
		opts.Results = store.NewMemoryResults()
	}
	if opts.MaxJobs <= 0 {
		opts.MaxJobs = DefaultMaxJobs
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{opts: opts, ctx: ctx, cancel: cancel}
}

// Start validates req and runs the search in the background.
func (s *Service) Start(req models.SearchRequest) (models.SearchAccepted, error) {
	req.JobTitle = strings.TrimSpace(req.JobTitle)
	req.Location = strings.TrimSpace(req.Location)
	if req.JobTitle == "" || req.Location == "" {
		return models.SearchAccepted{}, apperr.Input("search", "job title and location are required")
	}
	if s.opts.Source == nil {
		return models.SearchAccepted{}, apperr.Transport("search", errors.New("no source configured"))
	}
	if req.MaxJobs <= 0 || req.MaxJobs > s.opts.MaxJobs {
		req.MaxJobs = s.opts.MaxJobs
	}

	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		return models.SearchAccepted{}, ErrInProgress
	}
	s.status = models.SearchStatus{
		Running:     true,
		Progress:    progressStarted,
		Message:     "Starting search",
		SearchQuery: req.JobTitle,
		Location:    req.Location,
	}
	s.known = true
	s.mu.Unlock()

	id := uuid.NewString()
	s.wg.Add(1)
	go s.run(id, req)

	return models.SearchAccepted{SearchID: id}, nil
}

func (s *Service) run(id string, req models.SearchRequest) {
	defer s.wg.Done()
	logger := s.opts.Logger.With().Str("search_id", id).Str("query", req.JobTitle).Str("location", req.Location).Logger()
	params := models.SearchParams{Query: req.JobTitle, Location: req.Location, MaxJobs: req.MaxJobs}

	s.update(func(st *models.SearchStatus) {
		st.Progress = progressFetching
		st.Message = fmt.Sprintf("Fetching jobs from %s", s.opts.Source.Name())
	})

	start := time.Now()
	records, err := s.opts.Source.Search(s.ctx, params)
	if err != nil && s.opts.Fallback != nil && s.ctx.Err() == nil {
		logger.Warn().Err(err).Str("source", s.opts.Source.Name()).Msg("source failed; using fallback postings")
		records, err = s.opts.Fallback.Search(s.ctx, params)
	}
	if err != nil {
		logger.Error().Err(err).Msg("search failed")
		s.finish(0, fmt.Sprintf("Search failed: %v", err))
		return
	}

	results := store.Results{
		SearchID:  id,
		Query:     req.JobTitle,
		Location:  req.Location,
		Jobs:      records,
		CreatedAt: s.opts.Now().UTC(),
	}
	if err := s.opts.Results.Put(s.ctx, results); err != nil {
		logger.Error().Err(err).Msg("store results")
		s.finish(0, fmt.Sprintf("Search failed: %v", err))
		return
	}

	logger.Info().Int("jobs", len(records)).Dur("elapsed", time.Since(start)).Msg("search complete")
	s.finish(len(records), fmt.Sprintf("Found %d jobs", len(records)))
}

func (s *Service) finish(total int, message string) {
	s.update(func(st *models.SearchStatus) {
		st.Running = false
		st.Progress = progressDone
		st.TotalJobs = total
		st.Message = message
	})
}

func (s *Service) update(fn func(*models.SearchStatus)) {
	s.mu.Lock()
	fn(&s.status)
	s.mu.Unlock()
}

// Status reports the current search. Before any search in this process it
// describes whatever the result store still holds.
func (s *Service) Status(ctx context.Context) (models.SearchStatus, error) {
	s.mu.Lock()
	status, known := s.status, s.known
	s.mu.Unlock()
	if known {
		return status, nil
	}

	latest, ok, err := s.opts.Results.Latest(ctx)
	if err != nil {
		return models.SearchStatus{}, err
	}
	if !ok {
		return models.SearchStatus{Message: "No search yet"}, nil
	}
	return models.SearchStatus{
		Progress:    progressDone,
		Message:     fmt.Sprintf("Found %d jobs", len(latest.Jobs)),
		TotalJobs:   len(latest.Jobs),
		SearchQuery: latest.Query,
		Location:    latest.Location,
	}, nil
}

// Results returns one page of the latest results.
func (s *Service) Results(ctx context.Context, page, perPage int) (models.ResultsPage, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}

	latest, _, err := s.opts.Results.Latest(ctx)
	if err != nil {
		return models.ResultsPage{}, err
	}

	start := (page - 1) * perPage
	end := start + perPage
	jobs := []map[string]any{}
	if start < len(latest.Jobs) {
		jobs = latest.Jobs[start:min(end, len(latest.Jobs))]
	}
	return models.ResultsPage{
		Jobs:    jobs,
		Total:   len(latest.Jobs),
		Page:    page,
		PerPage: perPage,
		HasMore: end < len(latest.Jobs),
	}, nil
}

// StartPurge drops results older than ttl on schedule (cron syntax or
// "@every 1h").
func (s *Service) StartPurge(schedule string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	logger := s.opts.Logger.With().Str("component", "purge").Logger()
	c := cron.New(cron.WithLogger(cron.PrintfLogger(&logger)))
	if _, err := c.AddFunc(schedule, func() { s.Purge(ttl) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	c.Start()

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	logger.Info().Str("schedule", schedule).Dur("ttl", ttl).Msg("result purge scheduled")
	return nil
}

// Purge removes results created more than ttl ago.
func (s *Service) Purge(ttl time.Duration) {
	removed, err := s.opts.Results.Purge(s.ctx, s.opts.Now().Add(-ttl))
	if err != nil {
		s.opts.Logger.Error().Err(err).Msg("purge results")
		return
	}
	if !removed {
		return
	}
	s.opts.Logger.Info().Dur("ttl", ttl).Msg("expired results purged")

	s.mu.Lock()
	if !s.status.Running {
		s.status = models.SearchStatus{Progress: progressDone, Message: "Results expired"}
		s.known = true
	}
	s.mu.Unlock()
}

// Wait blocks until the in-flight search, if any, has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Close() {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
	s.cancel()
	s.wg.Wait()
}
