// Package normalize maps loosely typed job payloads onto models.Job.
// Normalization never fails: absent fields degrade to placeholder text.
package normalize

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jimezsa/jobsearch/internal/dedup"
	"github.com/jimezsa/jobsearch/internal/models"
)

const (
	Placeholder    = "N/A"
	RecentlyPosted = "Recently posted"
)

// jobNamespace scopes job ids derived from the composite key.
var jobNamespace = uuid.MustParse("6f1c4d2e-8a5b-4c3d-9e7f-0a1b2c3d4e5f")

// Record normalizes one raw posting. now is the ingestion time.
func Record(raw map[string]any, now time.Time) models.Job {
	job := models.Job{
		Title: orPlaceholder(String(raw["job_title"], raw["title"], raw["jobTitle"], raw["position"], raw["name"])),
		Company: orPlaceholder(String(
			raw["company"], raw["company_name"], raw["companyName"],
			Lookup(raw["company"], "display_name"), Lookup(raw["hiringOrganization"], "name"),
		)),
		Location: orPlaceholder(String(
			raw["location"], raw["job_location"], raw["jobLocation"],
			Lookup(raw["location"], "display_name"),
		)),
		Description: orPlaceholder(CleanText(String(raw["description"], raw["snippet"], raw["summary"]))),
		SalaryText:  String(raw["salary_text"], raw["salaryText"], raw["salary"]),
		URL:         orPlaceholder(String(raw["job_url"], raw["jobUrl"], raw["url"], raw["link"], raw["redirect_url"])),
	}

	postedRaw := String(raw["posted_date"], raw["postedDate"], raw["date_posted"], raw["datePosted"], raw["created"])
	if ts, err := ParseTime(postedRaw); err == nil {
		job.PostedAt = ts
	}
	job.PostedText = String(raw["posted_text"], raw["postedText"])
	if job.PostedText == "" {
		job.PostedText = PostedLabel(postedRaw, now)
	}

	job.CreatedAt = now
	if ts, err := ParseTime(String(raw["created_at"], raw["createdAt"])); err == nil {
		job.CreatedAt = ts
	}

	if stage, err := models.ParseStage(String(raw["stage"])); err == nil && String(raw["stage"]) != "" {
		job.Stage = stage
	}

	job.JobID = String(raw["job_id"], raw["jobId"], raw["id"])
	if job.JobID == "" {
		job.JobID = DerivedID(job)
	}
	return job
}

// Records normalizes a batch, preserving order.
func Records(raw []map[string]any, now time.Time) []models.Job {
	jobs := make([]models.Job, 0, len(raw))
	for _, item := range raw {
		if item == nil {
			continue
		}
		jobs = append(jobs, Record(item, now))
	}
	return jobs
}

// DerivedID returns a stable id for postings the source did not identify.
func DerivedID(job models.Job) string {
	return uuid.NewSHA1(jobNamespace, []byte(dedup.Key(job))).String()
}

// PostedLabel renders a posting date relative to now. Unparseable dates
// yield RecentlyPosted.
func PostedLabel(value string, now time.Time) string {
	ts, err := ParseTime(value)
	if err != nil {
		return RecentlyPosted
	}

	days := int(now.Sub(ts).Hours() / 24)
	if days < 0 {
		days = 0
	}
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "1 day ago"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days <= 30:
		weeks := days / 7
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	default:
		return ts.Format("Jan 2, 2006")
	}
}

func orPlaceholder(value string) string {
	if value == "" {
		return Placeholder
	}
	return value
}
