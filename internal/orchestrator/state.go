package orchestrator

import (
	"strings"

	"github.com/jimezsa/jobsearch/internal/apperr"
	"github.com/jimezsa/jobsearch/internal/dedup"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/paginate"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSearching Phase = "searching"
	PhasePolling   Phase = "polling"
	PhaseLoaded    Phase = "loaded"
	PhaseError     Phase = "error"
)

// MaxResults caps the accumulated result list.
const MaxResults = 200

// State is a snapshot of a search session. It is only ever replaced, never
// mutated, so snapshots can be handed out freely.
type State struct {
	Phase       Phase
	Generation  uint64
	Query       string
	Location    string
	Status      models.SearchStatus
	Jobs        []models.Job
	Saved       []models.Job
	Tab         paginate.Tab
	Page        paginate.State
	LoadingMore bool
	Err         error
}

// Initial returns the idle state.
func Initial() State {
	return State{Phase: PhaseIdle, Tab: paginate.TabAll, Page: paginate.New(0)}
}

// Busy reports whether a search is in flight.
func (s State) Busy() bool {
	return s.Phase == PhaseSearching || s.Phase == PhasePolling
}

// CanLoadMore reports whether the load-more affordance is offered.
func (s State) CanLoadMore() bool {
	return s.Phase == PhaseLoaded && !s.LoadingMore && len(s.Jobs) > 0 && len(s.Jobs) < MaxResults
}

// Visible returns the jobs shown under the active tab.
func (s State) Visible() []models.Job {
	return paginate.FilterTab(s.Tab, s.Jobs, s.Saved)
}

// CurrentPage returns the active page of the visible jobs.
func (s State) CurrentPage() []models.Job {
	return paginate.Slice(s.Visible(), s.Page.Current, s.Page.Size)
}

// Event is an input to Reduce.
type Event interface {
	event()
}

// Submitted starts a new search generation.
type Submitted struct {
	Query    string
	Location string
}

// Accepted reports that the backend took the search.
type Accepted struct {
	Generation uint64
	Response   models.SearchAccepted
}

// StatusReceived carries one poll result.
type StatusReceived struct {
	Generation uint64
	Status     models.SearchStatus
}

// ResultsReceived carries the normalized first results batch.
type ResultsReceived struct {
	Generation uint64
	Jobs       []models.Job
}

// MoreRequested marks a load-more round as started.
type MoreRequested struct {
	Generation uint64
}

// MoreReceived carries a load-more batch to merge.
type MoreReceived struct {
	Generation uint64
	Jobs       []models.Job
}

// Failed carries any failure of the generation.
type Failed struct {
	Generation uint64
	Err        error
}

type PageRequested struct {
	Page int
}

type TabChanged struct {
	Tab paginate.Tab
}

type SavedChanged struct {
	Saved []models.Job
}

func (Submitted) event()       {}
func (Accepted) event()        {}
func (StatusReceived) event()  {}
func (ResultsReceived) event() {}
func (MoreRequested) event()   {}
func (MoreReceived) event()    {}
func (Failed) event()          {}
func (PageRequested) event()   {}
func (TabChanged) event()      {}
func (SavedChanged) event()    {}

// Reduce applies ev to s. Events tagged with a generation other than the
// current one are stale and leave s unchanged.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case Submitted:
		if err := validateQuery(e.Query, e.Location); err != nil {
			s.Err = err
			if !s.Busy() {
				s.Phase = PhaseIdle
			}
			return s
		}
		return State{
			Phase:      PhaseSearching,
			Generation: s.Generation + 1,
			Query:      strings.TrimSpace(e.Query),
			Location:   strings.TrimSpace(e.Location),
			Saved:      s.Saved,
			Tab:        s.Tab,
			Page:       paginate.New(len(paginate.FilterTab(s.Tab, nil, s.Saved))),
		}

	case Accepted:
		if e.Generation != s.Generation || s.Phase != PhaseSearching {
			return s
		}
		s.Phase = PhasePolling
		return s

	case StatusReceived:
		if e.Generation != s.Generation || !s.Busy() {
			return s
		}
		s.Status = e.Status
		s.Phase = PhasePolling
		if !e.Status.Running && e.Status.TotalJobs <= 0 {
			s.Phase = PhaseLoaded
			s.Jobs = nil
			s.Page = paginate.New(len(s.Visible()))
		}
		return s

	case ResultsReceived:
		if e.Generation != s.Generation || !s.Busy() {
			return s
		}
		s.Jobs = capJobs(dedup.Filter(nil, e.Jobs))
		s.Phase = PhaseLoaded
		s.Err = nil
		s.Page = paginate.New(len(s.Visible()))
		return s

	case MoreRequested:
		if e.Generation != s.Generation || !s.CanLoadMore() {
			return s
		}
		s.LoadingMore = true
		return s

	case MoreReceived:
		if e.Generation != s.Generation || !s.LoadingMore {
			return s
		}
		merged, _ := dedup.Merge(s.Jobs, e.Jobs)
		s.Jobs = capJobs(merged)
		s.LoadingMore = false
		s.Err = nil
		s.Page = s.Page.Resize(len(s.Visible()))
		return s

	case Failed:
		if e.Generation != s.Generation {
			return s
		}
		s.Err = e.Err
		if s.LoadingMore {
			s.LoadingMore = false
			return s
		}
		if s.Busy() {
			s.Phase = PhaseError
		}
		return s

	case PageRequested:
		s.Page = s.Page.GoTo(e.Page)
		return s

	case TabChanged:
		s.Tab = e.Tab
		s.Page = s.Page.Resize(len(s.Visible()))
		return s

	case SavedChanged:
		s.Saved = e.Saved
		s.Page = s.Page.Resize(len(s.Visible()))
		return s
	}
	return s
}

func validateQuery(query, location string) error {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(location) == "" {
		return apperr.Input("search", "please enter both job title and location")
	}
	return nil
}

func capJobs(jobs []models.Job) []models.Job {
	if len(jobs) <= MaxResults {
		return jobs
	}
	return jobs[:MaxResults:MaxResults]
}
