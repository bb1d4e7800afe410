package normalize

import (
	"testing"
	"time"
	"unicode/utf8"
)

var now = time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

func TestParseTime(t *testing.T) {
	cases := []string{
		"2024-01-02",
		"2024-01-02T15:04:05-0700",
		time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(time.RFC3339),
		"Jan 2, 2024",
	}

	for _, value := range cases {
		parsed, err := ParseTime(value)
		if err != nil {
			t.Fatalf("expected parse success for %s: %v", value, err)
		}
		if parsed.IsZero() {
			t.Fatalf("parsed time should not be zero for %s", value)
		}
	}
}

func TestPostedLabel(t *testing.T) {
	cases := []struct {
		value string
		want  string
	}{
		{"", RecentlyPosted},
		{"yesterday-ish", RecentlyPosted},
		{"2025-03-31T08:00:00Z", "Today"},
		{"2025-03-30", "1 day ago"},
		{"2025-03-27", "4 days ago"},
		{"2025-03-24", "1 week ago"},
		{"2025-03-10", "3 weeks ago"},
		{"2025-03-01", "4 weeks ago"},
		{"2025-02-01", "Feb 1, 2025"},
		{"2025-04-05", "Today"},
	}

	for _, tc := range cases {
		if got := PostedLabel(tc.value, now); got != tc.want {
			t.Fatalf("PostedLabel(%q) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestRecordDefaults(t *testing.T) {
	job := Record(map[string]any{}, now)

	for name, value := range map[string]string{
		"title":       job.Title,
		"company":     job.Company,
		"location":    job.Location,
		"description": job.Description,
		"url":         job.URL,
	} {
		if value != Placeholder {
			t.Fatalf("%s = %q, want %q", name, value, Placeholder)
		}
	}
	if job.PostedText != RecentlyPosted {
		t.Fatalf("PostedText = %q, want %q", job.PostedText, RecentlyPosted)
	}
	if !job.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v, want %v", job.CreatedAt, now)
	}
	if job.JobID == "" {
		t.Fatalf("expected derived job id")
	}
	if job.SalaryText != "" {
		t.Fatalf("SalaryText = %q, want empty", job.SalaryText)
	}
}

func TestRecordBackendShape(t *testing.T) {
	job := Record(map[string]any{
		"job_id":      "abc123",
		"job_title":   "Software Engineer",
		"company":     "Acme",
		"location":    "Austin, TX",
		"description": "  Build   APIs &amp; services ",
		"salary_text": "$80,000 - $120,000",
		"posted_text": "3 days ago",
		"job_url":     "https://example.com/job/1",
		"created_at":  "2025-03-30T10:00:00Z",
	}, now)

	if job.JobID != "abc123" || job.Title != "Software Engineer" || job.Company != "Acme" {
		t.Fatalf("unexpected identity fields: %+v", job)
	}
	if job.Description != "Build APIs & services" {
		t.Fatalf("Description = %q", job.Description)
	}
	if job.PostedText != "3 days ago" {
		t.Fatalf("PostedText = %q, want source text", job.PostedText)
	}
	if job.CreatedAt.Day() != 30 {
		t.Fatalf("CreatedAt = %v, want source timestamp", job.CreatedAt)
	}
}

func TestRecordAlternateShapes(t *testing.T) {
	job := Record(map[string]any{
		"id":           float64(987),
		"title":        "Data Engineer",
		"company":      map[string]any{"display_name": "Beta"},
		"location":     map[string]any{"display_name": "Paris"},
		"redirect_url": "https://example.com/a",
		"created":      "2025-03-20",
	}, now)

	if job.JobID != "987" {
		t.Fatalf("JobID = %q, want 987", job.JobID)
	}
	if job.Company != "Beta" || job.Location != "Paris" {
		t.Fatalf("unexpected company/location: %q / %q", job.Company, job.Location)
	}
	if job.URL != "https://example.com/a" {
		t.Fatalf("URL = %q", job.URL)
	}
	if job.PostedText != "1 week ago" {
		t.Fatalf("PostedText = %q, want 1 week ago", job.PostedText)
	}
	if job.PostedAt.IsZero() {
		t.Fatalf("expected PostedAt to be parsed")
	}
}

func TestDerivedIDStable(t *testing.T) {
	a := Record(map[string]any{"title": "SRE", "company": "Acme", "location": "NY"}, now)
	b := Record(map[string]any{"title": "sre", "company": "ACME", "location": "N Y"}, now)
	if a.JobID != b.JobID {
		t.Fatalf("derived ids differ: %q vs %q", a.JobID, b.JobID)
	}
}

func TestRecordsSkipsNil(t *testing.T) {
	jobs := Records([]map[string]any{{"title": "A"}, nil, {"title": "B"}}, now)
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	cases := []struct {
		value string
		max   int
		want  string
	}{
		{"short", 10, "short"},
		{"aaaaaaaaaüb", 10, "aaaaaaaaa..."},
		{"Entwickler für München", 16, "Entwickler für..."},
		{"日本語", 4, "日..."},
	}
	for _, tc := range cases {
		got := Truncate(tc.value, tc.max)
		if !utf8.ValidString(got) {
			t.Fatalf("Truncate(%q, %d) = %q, not valid UTF-8", tc.value, tc.max, got)
		}
		if got != tc.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.value, tc.max, got, tc.want)
		}
	}
}
