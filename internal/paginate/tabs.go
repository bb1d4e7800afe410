package paginate

import (
	"fmt"
	"strings"

	"github.com/jimezsa/jobsearch/internal/models"
)

type Tab string

const (
	TabAll          Tab = "ALL JOBS"
	TabSaved        Tab = "SAVED"
	TabApplied      Tab = "APPLIED"
	TabInterviewing Tab = "INTERVIEWING"
	TabRejected     Tab = "REJECTED"
)

var Tabs = []Tab{TabAll, TabSaved, TabApplied, TabInterviewing, TabRejected}

// ParseTab accepts tab names case-insensitively; "all" and "" mean TabAll.
func ParseTab(value string) (Tab, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	switch normalized {
	case "", "ALL", string(TabAll):
		return TabAll, nil
	}
	for _, tab := range Tabs {
		if string(tab) == normalized {
			return tab, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", value)
}

// FilterTab returns the list shown under tab. Every tab but TabAll draws
// from saved only, never from all.
func FilterTab(tab Tab, all []models.Job, saved []models.Job) []models.Job {
	switch tab {
	case TabAll:
		return all
	case TabSaved:
		return saved
	}

	stage := tabStage(tab)
	if stage == "" {
		return nil
	}
	out := make([]models.Job, 0, len(saved))
	for _, job := range saved {
		if job.Stage == stage {
			out = append(out, job)
		}
	}
	return out
}

// Count returns the number of entries shown under tab.
func Count(tab Tab, all []models.Job, saved []models.Job) int {
	return len(FilterTab(tab, all, saved))
}

func tabStage(tab Tab) models.Stage {
	switch tab {
	case TabApplied:
		return models.StageApplied
	case TabInterviewing:
		return models.StageInterviewing
	case TabRejected:
		return models.StageRejected
	}
	return ""
}
