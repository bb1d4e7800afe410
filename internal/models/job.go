package models

import "time"

// Job is the normalized posting shared by the service and its clients.
type Job struct {
	JobID       string    `json:"job_id"`
	Title       string    `json:"job_title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	SalaryText  string    `json:"salary_text,omitempty"`
	PostedText  string    `json:"posted_text,omitempty"`
	PostedAt    time.Time `json:"posted_date,omitzero"`
	URL         string    `json:"job_url"`
	CreatedAt   time.Time `json:"created_at"`
	Stage       Stage     `json:"stage,omitempty"`
}

// SavedJobs is a user's bookmarked postings as stored remotely.
type SavedJobs struct {
	Jobs      []Job     `json:"jobs"`
	TotalJobs int       `json:"totalJobs"`
	UserEmail string    `json:"userEmail,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}
