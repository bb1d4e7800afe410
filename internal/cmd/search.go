package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jimezsa/jobsearch/internal/apperr"
	"github.com/jimezsa/jobsearch/internal/export"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/orchestrator"
	"github.com/jimezsa/jobsearch/internal/paginate"
	"github.com/jimezsa/jobsearch/internal/ui"
	"github.com/muesli/termenv"
)

type SearchCmd struct {
	Query    string        `arg:"" help:"Job title to search for."`
	Location string        `short:"l" help:"Job location (default: default_location)."`
	Page     int           `help:"Page of results to show." default:"1"`
	Tab      string        `help:"Tab to show: all, saved, applied, interviewing, rejected." default:"all"`
	More     int           `help:"Load more results N times after the first batch."`
	All      bool          `help:"Write every job on the tab instead of one page."`
	Timeout  time.Duration `help:"Give up after this long." default:"5m"`
	OutputOptions
}

type OutputOptions struct {
	Format string `help:"Output format: table, csv, tsv, json, md." enum:",table,csv,tsv,json,md" default:""`
	Links  string `help:"Table link display: short or full." enum:"short,full" default:"full"`
	Output string `name:"output" short:"o" help:"Write output to a file."`
	Out    string `name:"out" help:"Alias for --output."`
}

func (s *SearchCmd) Run(ctx *Context) error {
	tab, err := paginate.ParseTab(s.Tab)
	if err != nil {
		return apperr.New(apperr.KindInput, "search", err)
	}
	location := firstNonEmpty(s.Location, ctx.Config.DefaultLocation)

	client, err := ctx.APIClient()
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.Timeout)
		defer cancel()
	}

	orch := orchestrator.New(client, orchestrator.Options{
		Reporter: ctx.Reporter(),
		Logger:   ctx.Logger,
	})
	defer orch.Close()

	var session *savedSession
	if client.User() != "" {
		session, _ = openSavedSession(runCtx, ctx, client, func(jobs []models.Job) {
			orch.SetSaved(jobs)
		})
		if session != nil {
			defer func() {
				if err := session.Close(); err != nil {
					ctx.Logger.Warn().Err(err).Msg("persist unsynced saved jobs")
				}
			}()
		}
	} else if tab != paginate.TabAll {
		ctx.UI.Warnf("No user configured; the %s tab is empty (set --user or user_email)", tab)
	}

	stopIndicator := startSearchIndicator(ctx, func() string {
		return progressLabel(orch.State())
	})
	st, err := runSearch(runCtx, orch, s.Query, location, s.More)
	if stopIndicator != nil {
		stopIndicator()
	}
	if err != nil {
		return err
	}
	if msg := st.Status.Message; msg != "" && len(st.Jobs) == 0 {
		ctx.UI.Infof("%s", msg)
	}

	st = orch.SwitchTab(tab)
	if s.Page != st.Page.Current {
		next := orch.GoToPage(s.Page)
		if next.Page.Current != s.Page {
			ctx.UI.Warnf("Page %d is out of range (1-%d); showing page %d", s.Page, max(next.Page.Total, 1), next.Page.Current)
		}
		st = next
	}

	jobs := st.CurrentPage()
	offset := (st.Page.Current - 1) * st.Page.Size
	if s.All {
		jobs = st.Visible()
		offset = 0
	}

	var isSaved func(string) bool
	if session != nil {
		isSaved = session.tracker.IsSaved
	}
	if err := writeJobs(ctx, s.OutputOptions, jobs, isSaved, offset); err != nil {
		return err
	}

	printSearchSummary(ctx, st)
	return nil
}

// runSearch submits the query, waits for the first batch and then loads more
// batches while the service offers them.
func runSearch(ctx context.Context, orch *orchestrator.Orchestrator, query, location string, more int) (orchestrator.State, error) {
	if err := orch.Search(ctx, query, location); err != nil {
		return orch.State(), reported(err)
	}

	st, err := orch.Wait(ctx)
	if err != nil {
		return st, apperr.Transport("search", err)
	}
	if st.Phase == orchestrator.PhaseError {
		return st, reported(st.Err)
	}

	for i := 0; i < more; i++ {
		if !orch.State().CanLoadMore() {
			break
		}
		if err := orch.LoadMore(ctx); err != nil {
			return orch.State(), reported(err)
		}
	}
	return orch.State(), nil
}

func writeJobs(ctx *Context, opts OutputOptions, jobs []models.Job, isSaved func(string) bool, offset int) error {
	outputPath := resolveOutputPath(opts)
	format, err := resolveFormat(ctx, opts, outputPath)
	if err != nil {
		return err
	}

	writer := ctx.Out
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}

	colorEnabled := ctx.UI != nil && ctx.UI.ColorEnabled
	linkStyle := export.LinkStyleShort
	if strings.EqualFold(opts.Links, string(export.LinkStyleFull)) {
		linkStyle = export.LinkStyleFull
	}
	return export.WriteJobs(writer, jobs, format, export.WriteOptions{
		ColorEnabled: colorEnabled,
		Hyperlinks:   colorEnabled && isTTY(writer),
		LinkStyle:    linkStyle,
		IsSaved:      isSaved,
		Offset:       offset,
	})
}

func printSearchSummary(ctx *Context, st orchestrator.State) {
	if ctx == nil || ctx.Err == nil {
		return
	}
	_, _ = fmt.Fprintf(ctx.Err, "%s\n", formatSearchSummary(st))
}

func formatSearchSummary(st orchestrator.State) string {
	parts := []string{fmt.Sprintf("jobs=%d", len(st.Jobs))}
	for _, tab := range paginate.Tabs[1:] {
		if n := paginate.Count(tab, st.Jobs, st.Saved); n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", strings.ToLower(string(tab)), n))
		}
	}
	page := fmt.Sprintf("%d/%d", st.Page.Current, max(st.Page.Total, 1))
	return fmt.Sprintf("summary: %s tab=%q page=%s", strings.Join(parts, " "), string(st.Tab), page)
}

func progressLabel(st orchestrator.State) string {
	if st.LoadingMore {
		return "Loading more results..."
	}
	if !st.Busy() {
		return "Searching..."
	}
	message := st.Status.Message
	if message == "" {
		message = "Searching..."
	}
	return ui.Progress(st.Status.Progress, 20) + " " + message
}

func resolveOutputPath(opts OutputOptions) string {
	if opts.Output != "" {
		return opts.Output
	}
	return opts.Out
}

func resolveFormat(ctx *Context, opts OutputOptions, outputPath string) (export.Format, error) {
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if opts.Format != "" {
		return export.ParseFormat(opts.Format)
	}
	if outputPath == "" && isTTY(ctx.Out) {
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func isTTY(out io.Writer) bool {
	output := termenv.NewOutput(out)
	return output.ColorProfile() != termenv.Ascii
}

// startSearchIndicator redraws label on the error stream until stopped.
// It does nothing unless the error stream is a terminal.
func startSearchIndicator(ctx *Context, label func() string) func() {
	if ctx == nil || ctx.Err == nil || ctx.UI == nil {
		return nil
	}
	if !isTTY(ctx.Err) {
		return nil
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		start := time.Now()
		frames := []string{"|", "/", "-", "\\"}
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		index := 0

		for {
			select {
			case <-done:
				fmt.Fprint(ctx.Err, "\r\033[2K")
				return
			case <-ticker.C:
				seconds := int(time.Since(start).Seconds())
				frame := frames[index%len(frames)]
				fmt.Fprintf(ctx.Err, "\r\033[2K%s %ds %s", label(), seconds, frame)
				index++
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}
