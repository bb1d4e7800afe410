package models

// SearchRequest is the body of a search submission.
type SearchRequest struct {
	JobTitle string `json:"jobTitle"`
	Location string `json:"location"`
	MaxJobs  int    `json:"maxJobs,omitempty"`
}

// SearchAccepted answers a search submission.
type SearchAccepted struct {
	SearchID string `json:"searchId"`
	JobCount int    `json:"jobCount"`
}

// SearchStatus reports the state of the asynchronous search job.
type SearchStatus struct {
	Running     bool   `json:"running"`
	Progress    int    `json:"progress"`
	Message     string `json:"message"`
	TotalJobs   int    `json:"total_jobs"`
	SearchQuery string `json:"search_query"`
	Location    string `json:"location"`
}

// ResultsPage is one page of the latest search results. Jobs are kept in the
// upstream shape; clients normalize them.
type ResultsPage struct {
	Jobs    []map[string]any `json:"jobs"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
	HasMore bool             `json:"has_more"`
}

// SearchParams captures the normalized search inputs used by sources.
type SearchParams struct {
	Query    string
	Location string
	MaxJobs  int
}
