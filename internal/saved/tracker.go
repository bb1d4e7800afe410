// Package saved keeps the user's bookmarked postings. Local state is updated
// first and written through to the remote store; failed writes leave the
// tracker pending and are retried with backoff until the remote agrees.
package saved

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jimezsa/jobsearch/internal/apperr"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/rs/zerolog"
)

const (
	DefaultRetryBase   = 500 * time.Millisecond
	DefaultRetryMax    = 30 * time.Second
	DefaultMaxAttempts = 6
)

var ErrSyncExhausted = errors.New("saved jobs are not synced; retries exhausted")

// Remote is the per-user saved-jobs store.
type Remote interface {
	Load(ctx context.Context) ([]models.Job, error)
	Save(ctx context.Context, jobs []models.Job) error
}

type Options struct {
	RetryBase   time.Duration
	RetryMax    time.Duration
	MaxAttempts int
	Reporter    apperr.Reporter
	Logger      zerolog.Logger
	// OnChange receives a copy of the saved list after every local change.
	OnChange func([]models.Job)
}

type Tracker struct {
	remote Remote
	opts   Options

	// saveMu serializes remote writes so the last write always carries the
	// latest local list.
	saveMu sync.Mutex

	mu       sync.Mutex
	jobs     []models.Job
	version  uint64
	pending  bool
	retrying bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(remote Remote, opts Options) *Tracker {
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultRetryBase
	}
	if opts.RetryMax < opts.RetryBase {
		opts.RetryMax = DefaultRetryMax
		if opts.RetryMax < opts.RetryBase {
			opts.RetryMax = opts.RetryBase
		}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Reporter == nil {
		opts.Reporter = apperr.Discard
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{remote: remote, opts: opts, ctx: ctx, cancel: cancel}
}

// Load fetches the remote list once and replaces local state when the
// remote list is non-empty. Unsynced local changes are kept.
func (t *Tracker) Load(ctx context.Context) error {
	jobs, err := t.remote.Load(ctx)
	if err != nil {
		err = apperr.Transport("load saved jobs", err)
		t.opts.Reporter.Report(err)
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	t.mu.Lock()
	if t.pending {
		t.mu.Unlock()
		t.opts.Logger.Warn().Int("remote", len(jobs)).Msg("keeping unsynced saved jobs over remote list")
		return nil
	}
	t.jobs = clone(jobs)
	t.version++
	snapshot := clone(t.jobs)
	t.mu.Unlock()

	t.notify(snapshot)
	return nil
}

// Restore seeds local state with jobs that never reached the remote store
// and marks the tracker pending. Nothing is sent until Sync or the next
// change.
func (t *Tracker) Restore(jobs []models.Job) {
	t.mu.Lock()
	t.jobs = clone(jobs)
	t.version++
	t.pending = true
	snapshot := clone(t.jobs)
	t.mu.Unlock()

	t.notify(snapshot)
}

// Toggle saves job when it is not saved yet and removes it otherwise.
// Membership is by JobID. The local change stands even when the remote
// write fails.
func (t *Tracker) Toggle(ctx context.Context, job models.Job) (bool, error) {
	t.mu.Lock()
	idx := t.indexLocked(job.JobID)
	saved := idx < 0
	if saved {
		if job.Stage == "" {
			job.Stage = models.StageSaved
		}
		t.jobs = append(clone(t.jobs), job)
	} else {
		t.jobs = remove(t.jobs, idx)
	}
	t.version++
	snapshot := clone(t.jobs)
	t.mu.Unlock()

	t.notify(snapshot)
	return saved, t.writeThrough(ctx)
}

// SetStage records the application stage of job, saving it if needed.
func (t *Tracker) SetStage(ctx context.Context, job models.Job, stage models.Stage) error {
	t.mu.Lock()
	idx := t.indexLocked(job.JobID)
	next := clone(t.jobs)
	if idx < 0 {
		job.Stage = stage
		next = append(next, job)
	} else {
		next[idx].Stage = stage
	}
	t.jobs = next
	t.version++
	snapshot := clone(t.jobs)
	t.mu.Unlock()

	t.notify(snapshot)
	return t.writeThrough(ctx)
}

// Sync pushes the local list to the remote store now.
func (t *Tracker) Sync(ctx context.Context) error {
	if err := t.flush(ctx); err != nil {
		err = apperr.Transport("sync saved jobs", err)
		t.opts.Reporter.Report(err)
		return err
	}
	return nil
}

func (t *Tracker) Jobs() []models.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return clone(t.jobs)
}

func (t *Tracker) IsSaved(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indexLocked(jobID) >= 0
}

// Find returns the saved job with jobID.
func (t *Tracker) Find(jobID string) (models.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.indexLocked(jobID)
	if idx < 0 {
		return models.Job{}, false
	}
	return t.jobs[idx], true
}

// Pending reports whether local changes have not reached the remote store.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Close stops background retries.
func (t *Tracker) Close() {
	t.cancel()
	t.wg.Wait()
}

func (t *Tracker) writeThrough(ctx context.Context) error {
	err := t.flush(ctx)
	if err == nil {
		return nil
	}
	err = apperr.Transport("save jobs", err)
	t.opts.Logger.Warn().Err(err).Msg("saved jobs pending sync")
	t.opts.Reporter.Report(err)
	t.scheduleRetry()
	return err
}

func (t *Tracker) flush(ctx context.Context) error {
	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	t.mu.Lock()
	snapshot := clone(t.jobs)
	version := t.version
	t.mu.Unlock()

	err := t.remote.Save(ctx, snapshot)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.pending = true
		return err
	}
	if version == t.version {
		t.pending = false
	}
	return nil
}

func (t *Tracker) scheduleRetry() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.retrying || t.ctx.Err() != nil {
		return
	}
	t.retrying = true
	t.wg.Add(1)
	go t.retry()
}

func (t *Tracker) retry() {
	defer t.wg.Done()

	delay := t.opts.RetryBase
	for attempt := 1; attempt <= t.opts.MaxAttempts; attempt++ {
		timer := time.NewTimer(delay)
		select {
		case <-t.ctx.Done():
			timer.Stop()
			t.stopRetrying()
			return
		case <-timer.C:
		}

		if !t.Pending() {
			t.stopRetrying()
			return
		}
		err := t.flush(t.ctx)
		if err == nil && !t.Pending() {
			t.opts.Logger.Debug().Int("attempt", attempt).Msg("saved jobs synced")
			t.stopRetrying()
			return
		}
		if err != nil {
			t.opts.Logger.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("saved jobs sync retry failed")
		}

		delay *= 2
		if delay > t.opts.RetryMax {
			delay = t.opts.RetryMax
		}
	}

	t.stopRetrying()
	if t.Pending() && t.ctx.Err() == nil {
		t.opts.Reporter.Report(apperr.Transport("sync saved jobs", ErrSyncExhausted))
	}
}

func (t *Tracker) stopRetrying() {
	t.mu.Lock()
	t.retrying = false
	t.mu.Unlock()
}

func (t *Tracker) notify(snapshot []models.Job) {
	if t.opts.OnChange != nil {
		t.opts.OnChange(snapshot)
	}
}

func (t *Tracker) indexLocked(jobID string) int {
	for i, job := range t.jobs {
		if job.JobID == jobID {
			return i
		}
	}
	return -1
}

func clone(jobs []models.Job) []models.Job {
	if jobs == nil {
		return nil
	}
	return append([]models.Job(nil), jobs...)
}

func remove(jobs []models.Job, idx int) []models.Job {
	out := make([]models.Job, 0, len(jobs)-1)
	out = append(out, jobs[:idx]...)
	return append(out, jobs[idx+1:]...)
}
