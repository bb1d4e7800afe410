package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jimezsa/jobsearch/internal/api"
	"github.com/jimezsa/jobsearch/internal/apperr"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/normalize"
	"github.com/jimezsa/jobsearch/internal/orchestrator"
	"github.com/jimezsa/jobsearch/internal/paginate"
	"github.com/jimezsa/jobsearch/internal/saved"
	"github.com/jimezsa/jobsearch/internal/store"
)

// pendingDirName holds saved lists that have not reached the service yet.
const pendingDirName = "pending"

const savedTimeout = 2 * time.Minute

type SavedCmd struct {
	List   SavedListCmd   `cmd:"" help:"List saved jobs."`
	Toggle SavedToggleCmd `cmd:"" help:"Save a job from the latest results, or remove it when already saved."`
	Stage  SavedStageCmd  `cmd:"" help:"Set the application stage of a job."`
	Sync   SavedSyncCmd   `cmd:"" help:"Push saved jobs that failed to sync."`
}

type SavedListCmd struct {
	Tab string `help:"Tab to list: saved, applied, interviewing, rejected." default:"saved"`
	OutputOptions
}

type SavedToggleCmd struct {
	JobID string `arg:"" name:"job-id" help:"Job id from the search results."`
}

type SavedStageCmd struct {
	JobID string `arg:"" name:"job-id" help:"Job id from the search results or saved jobs."`
	Stage string `arg:"" help:"Stage: saved, applied, interviewing, rejected." enum:"saved,applied,interviewing,rejected"`
}

type SavedSyncCmd struct{}

func (c *SavedListCmd) Run(ctx *Context) error {
	tab, err := paginate.ParseTab(c.Tab)
	if err != nil {
		return apperr.New(apperr.KindInput, "saved list", err)
	}
	if tab == paginate.TabAll {
		tab = paginate.TabSaved
	}

	return withSavedSession(ctx, func(_ context.Context, _ *api.Client, session *savedSession) error {
		jobs := paginate.FilterTab(tab, nil, session.tracker.Jobs())
		if err := writeJobs(ctx, c.OutputOptions, jobs, session.tracker.IsSaved, 0); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(ctx.Err, "%s\n", formatSavedSummary(session.tracker.Jobs()))
		return nil
	})
}

func (c *SavedToggleCmd) Run(ctx *Context) error {
	return withSavedSession(ctx, func(runCtx context.Context, client *api.Client, session *savedSession) error {
		job, err := lookupJob(runCtx, client, session.tracker, c.JobID)
		if err != nil {
			return err
		}
		// A failed write has been reported and stays pending; Close keeps it.
		added, _ := session.tracker.Toggle(runCtx, job)
		if added {
			ctx.UI.Successf("Saved: %s (%s)", job.Title, job.Company)
		} else {
			ctx.UI.Infof("Removed: %s (%s)", job.Title, job.Company)
		}
		return nil
	})
}

func (c *SavedStageCmd) Run(ctx *Context) error {
	stage, err := models.ParseStage(c.Stage)
	if err != nil {
		return apperr.New(apperr.KindInput, "saved stage", err)
	}

	return withSavedSession(ctx, func(runCtx context.Context, client *api.Client, session *savedSession) error {
		job, err := lookupJob(runCtx, client, session.tracker, c.JobID)
		if err != nil {
			return err
		}
		_ = session.tracker.SetStage(runCtx, job, stage)
		ctx.UI.Successf("%s (%s): %s", job.Title, job.Company, stage)
		return nil
	})
}

func (c *SavedSyncCmd) Run(ctx *Context) error {
	return withSavedSession(ctx, func(runCtx context.Context, _ *api.Client, session *savedSession) error {
		if session.tracker.Pending() {
			if err := session.tracker.Sync(runCtx); err != nil {
				return reported(err)
			}
		}
		ctx.UI.Successf("Saved jobs in sync (%d jobs)", len(session.tracker.Jobs()))
		return nil
	})
}

// withSavedSession opens the user's saved jobs, runs fn and persists any
// change the service has not acknowledged.
func withSavedSession(ctx *Context, fn func(context.Context, *api.Client, *savedSession) error) error {
	client, err := ctx.APIClient()
	if err != nil {
		return err
	}
	if client.User() == "" {
		return apperr.New(apperr.KindInput, "saved jobs", api.ErrNoUser)
	}

	runCtx, cancel := context.WithTimeout(context.Background(), savedTimeout)
	defer cancel()

	session, err := openSavedSession(runCtx, ctx, client, nil)
	if err != nil {
		if session != nil {
			_ = session.Close()
		}
		return reported(err)
	}

	runErr := fn(runCtx, client, session)
	if err := session.Close(); err != nil {
		return errors.Join(runErr, fmt.Errorf("persist unsynced saved jobs: %w", err))
	}
	return runErr
}

type savedSession struct {
	ctx     *Context
	user    string
	tracker *saved.Tracker
	pending *store.FileStore
}

// openSavedSession builds a tracker for the configured user. Changes left
// unsynced by an earlier run are restored and pushed first; otherwise the
// service's list is loaded. A non-nil error has already been reported.
func openSavedSession(runCtx context.Context, ctx *Context, client *api.Client, onChange func([]models.Job)) (*savedSession, error) {
	session := &savedSession{
		ctx:  ctx,
		user: client.User(),
		tracker: saved.New(client, saved.Options{
			Reporter: ctx.Reporter(),
			Logger:   ctx.Logger,
			OnChange: onChange,
		}),
		pending: store.NewFileStore(filepath.Join(ctx.ConfigDir, pendingDirName)),
	}

	if session.pending.Exists(session.user) {
		doc, err := session.pending.Load(runCtx, session.user)
		if err != nil {
			err = apperr.Transport("read unsynced saved jobs", err)
			ctx.Reporter().Report(err)
			return session, err
		}
		session.tracker.Restore(doc.Jobs)
		ctx.UI.Warnf("Restored %d unsynced saved jobs", len(doc.Jobs))
		// A failed sync stays pending and is persisted again on Close.
		_ = session.tracker.Sync(runCtx)
		return session, nil
	}

	if err := session.tracker.Load(runCtx); err != nil {
		return session, err
	}
	return session, nil
}

// Close stops background retries and keeps unsynced changes on disk for the
// next run.
func (s *savedSession) Close() error {
	s.tracker.Close()
	if !s.tracker.Pending() {
		return s.pending.Delete(context.Background(), s.user)
	}
	if _, err := s.pending.Save(context.Background(), s.user, s.tracker.Jobs()); err != nil {
		return err
	}
	s.ctx.UI.Warnf("Saved jobs are not synced yet; run `jobsearch saved sync` to retry")
	return nil
}

// lookupJob finds jobID among the saved jobs first and then in the latest
// search results held by the service.
func lookupJob(ctx context.Context, client *api.Client, tracker *saved.Tracker, jobID string) (models.Job, error) {
	if job, ok := tracker.Find(jobID); ok {
		return job, nil
	}
	raw, err := client.Results(ctx, orchestrator.MaxResults)
	if err != nil {
		return models.Job{}, err
	}
	for _, job := range normalize.Records(raw, time.Now()) {
		if job.JobID == jobID {
			return job, nil
		}
	}
	return models.Job{}, apperr.Input("saved", "job %q is not saved and not in the latest results", jobID)
}

func formatSavedSummary(jobs []models.Job) string {
	summary := fmt.Sprintf("summary: saved=%d", len(jobs))
	for _, tab := range paginate.Tabs[2:] {
		summary += fmt.Sprintf(" %s=%d", strings.ToLower(string(tab)), paginate.Count(tab, nil, jobs))
	}
	return summary
}
