// Package orchestrator drives a search session: submit, poll until the
// backend finishes, load and merge results. Session state lives in State and
// changes only through Reduce.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jimezsa/jobsearch/internal/apperr"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/normalize"
	"github.com/jimezsa/jobsearch/internal/paginate"
	"github.com/rs/zerolog"
)

const (
	DefaultPollInterval  = time.Second
	DefaultLoadMoreDelay = 3 * time.Second
	DefaultBatchSize     = 50
	DefaultMaxJobs       = 100
)

var ErrNoMoreResults = errors.New("no more results available")

// Backend is the job-search service as seen by the orchestrator.
type Backend interface {
	Submit(ctx context.Context, req models.SearchRequest) (models.SearchAccepted, error)
	Status(ctx context.Context) (models.SearchStatus, error)
	Results(ctx context.Context, perPage int) ([]map[string]any, error)
}

type Options struct {
	PollInterval  time.Duration
	LoadMoreDelay time.Duration
	BatchSize     int
	MaxJobs       int
	Reporter      apperr.Reporter
	Logger        zerolog.Logger
	Now           func() time.Time
	// OnChange is called after every state transition, outside any lock.
	OnChange func(State)
}

type Orchestrator struct {
	backend Backend
	opts    Options

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func New(backend Backend, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.LoadMoreDelay < 0 {
		opts.LoadMoreDelay = 0
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxJobs <= 0 {
		opts.MaxJobs = DefaultMaxJobs
	}
	if opts.Reporter == nil {
		opts.Reporter = apperr.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{backend: backend, opts: opts, state: Initial()}
}

// State returns the current snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Search starts a new search, superseding any search in flight. It returns
// once the backend accepted the submission; polling continues in the
// background until ctx is done or the search completes.
func (o *Orchestrator) Search(ctx context.Context, query, location string) error {
	if err := validateQuery(query, location); err != nil {
		o.dispatch(Submitted{Query: query, Location: location})
		o.opts.Reporter.Report(err)
		return err
	}

	// The generation bump and the task swap happen under one lock so a
	// newer search can never have its task replaced by an older one.
	o.mu.Lock()
	o.state = Reduce(o.state, Submitted{Query: query, Location: location})
	st := o.state
	gen := st.Generation
	if o.cancel != nil {
		o.cancel()
	}
	taskCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	o.cancel = cancel
	o.done = done
	o.mu.Unlock()
	o.notify(st)

	o.opts.Logger.Debug().Str("query", st.Query).Str("location", st.Location).Uint64("generation", gen).Msg("submitting search")
	accepted, err := o.backend.Submit(taskCtx, models.SearchRequest{
		JobTitle: st.Query,
		Location: st.Location,
		MaxJobs:  o.opts.MaxJobs,
	})
	if err != nil {
		close(done)
		return o.fail(gen, "submit search", err)
	}
	o.dispatch(Accepted{Generation: gen, Response: accepted})

	go func() {
		defer close(done)
		o.poll(taskCtx, gen)
	}()
	return nil
}

// Wait blocks until the current search task has finished.
func (o *Orchestrator) Wait(ctx context.Context) (State, error) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done == nil {
		return o.State(), nil
	}
	select {
	case <-done:
		return o.State(), nil
	case <-ctx.Done():
		return o.State(), ctx.Err()
	}
}

// LoadMore re-runs the current query and merges the new postings into the
// accumulated list. The backend has no cursor, so new entries surface only
// through deduplication against what is already loaded.
func (o *Orchestrator) LoadMore(ctx context.Context) error {
	st := o.State()
	if !st.CanLoadMore() {
		err := apperr.New(apperr.KindConflict, "load more", ErrNoMoreResults)
		o.opts.Reporter.Report(err)
		return err
	}
	gen := st.Generation
	o.dispatch(MoreRequested{Generation: gen})

	if _, err := o.backend.Submit(ctx, models.SearchRequest{
		JobTitle: st.Query,
		Location: st.Location,
		MaxJobs:  o.opts.MaxJobs,
	}); err != nil {
		return o.fail(gen, "load more", err)
	}

	if err := sleep(ctx, o.opts.LoadMoreDelay); err != nil {
		return o.fail(gen, "load more", err)
	}
	if err := o.awaitIdle(ctx); err != nil {
		return o.fail(gen, "load more status", err)
	}

	raw, err := o.backend.Results(ctx, len(st.Jobs)+o.opts.BatchSize)
	if err != nil {
		return o.fail(gen, "load more results", err)
	}
	before := len(st.Jobs)
	next := o.dispatch(MoreReceived{Generation: gen, Jobs: normalize.Records(raw, o.opts.Now())})
	o.opts.Logger.Debug().Int("before", before).Int("after", len(next.Jobs)).Msg("load more merged")
	return nil
}

func (o *Orchestrator) GoToPage(page int) State {
	return o.dispatch(PageRequested{Page: page})
}

func (o *Orchestrator) SwitchTab(tab paginate.Tab) State {
	return o.dispatch(TabChanged{Tab: tab})
}

func (o *Orchestrator) SetSaved(saved []models.Job) State {
	return o.dispatch(SavedChanged{Saved: saved})
}

// Close cancels the search in flight and waits for it to stop.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (o *Orchestrator) poll(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		status, err := o.backend.Status(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			_ = o.fail(gen, "poll status", err)
			return
		}

		st := o.dispatch(StatusReceived{Generation: gen, Status: status})
		if st.Generation != gen {
			return
		}
		o.opts.Logger.Debug().Bool("running", status.Running).Int("progress", status.Progress).Str("message", status.Message).Msg("search status")

		if !status.Running {
			if status.TotalJobs > 0 {
				o.loadResults(ctx, gen)
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) loadResults(ctx context.Context, gen uint64) {
	raw, err := o.backend.Results(ctx, o.opts.BatchSize)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		_ = o.fail(gen, "load results", err)
		return
	}
	st := o.dispatch(ResultsReceived{Generation: gen, Jobs: normalize.Records(raw, o.opts.Now())})
	o.opts.Logger.Debug().Int("jobs", len(st.Jobs)).Msg("results loaded")
}

// awaitIdle polls status until the backend reports no running search.
func (o *Orchestrator) awaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()
	for {
		status, err := o.backend.Status(ctx)
		if err != nil {
			return err
		}
		if !status.Running {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// fail records err against generation gen and reports it unless gen is stale.
func (o *Orchestrator) fail(gen uint64, op string, err error) error {
	var classified *apperr.Error
	if !errors.As(err, &classified) {
		err = apperr.Transport(op, err)
	}
	st := o.dispatch(Failed{Generation: gen, Err: err})
	if st.Generation == gen {
		o.opts.Logger.Debug().Err(err).Str("op", op).Msg("search failed")
		o.opts.Reporter.Report(err)
	}
	return err
}

func (o *Orchestrator) dispatch(ev Event) State {
	o.mu.Lock()
	o.state = Reduce(o.state, ev)
	st := o.state
	o.mu.Unlock()

	o.notify(st)
	return st
}

func (o *Orchestrator) notify(st State) {
	if o.opts.OnChange != nil {
		o.opts.OnChange(st)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
