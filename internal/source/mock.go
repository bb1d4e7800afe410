package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jimezsa/jobsearch/internal/models"
)

const mockCount = 25

var (
	mockCompanies = []string{"Google", "Microsoft", "Amazon", "Apple", "Meta", "Netflix", "Tesla", "Spotify"}
	mockLevels    = []string{"", "Senior ", "Lead ", "Staff "}
	mockBlurbs    = []string{
		"We are looking for a talented professional to join our dynamic team and contribute to cutting-edge projects.",
		"Join our innovative company and work on exciting challenges that impact millions of users worldwide.",
		"Seeking a motivated individual to help drive our mission forward with creativity and technical excellence.",
		"Be part of a collaborative environment where your skills will make a real difference in our products.",
		"Opportunity to work with industry-leading technologies and contribute to groundbreaking solutions.",
	}
)

// Mock produces placeholder postings for the requested title and location.
type Mock struct {
	now func() time.Time
}

func NewMock() *Mock {
	return &Mock{now: time.Now}
}

func (m *Mock) Name() string {
	return NameMock
}

func (m *Mock) Search(_ context.Context, params models.SearchParams) ([]map[string]any, error) {
	now := m.now().UTC()
	stamp := now.UnixMilli()

	records := make([]map[string]any, 0, mockCount)
	for i := 0; i < mockCount; i++ {
		company := mockCompanies[i%len(mockCompanies)]
		level := mockLevels[(i/len(mockCompanies))%len(mockLevels)]
		days := i%7 + 1
		records = append(records, map[string]any{
			"job_id":      fmt.Sprintf("mock_%d_%d", stamp, i),
			"job_title":   level + params.Query,
			"company":     company,
			"location":    params.Location,
			"description": mockBlurbs[i%len(mockBlurbs)],
			"salary_text": "$80,000 - $120,000",
			"posted_text": fmt.Sprintf("%d days ago", days),
			"posted_date": now.AddDate(0, 0, -days).Format(time.RFC3339),
			"job_url":     fmt.Sprintf("https://example.com/job/%d", i),
			"created_at":  now.Format(time.RFC3339),
		})
	}
	return records, nil
}
