package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/jobsearch/internal/config"
	"github.com/jimezsa/jobsearch/internal/dedup"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/network"
	"github.com/jimezsa/jobsearch/internal/normalize"
	"github.com/rs/zerolog"
)

type fakeDoer struct {
	status   int
	body     string
	err      error
	requests []*fhttp.Request
	bodies   []string
}

func (f *fakeDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	f.requests = append(f.requests, req)
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(data))
	}
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = fhttp.StatusOK
	}
	return &fhttp.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Request:    req,
	}, nil
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("goquery: %v", err)
	}
	return doc
}

func TestDecodeScraperBody(t *testing.T) {
	records, err := decodeScraperBody([]byte(` [{"job_title":"Go Dev"},{"job_title":"SRE"}] `))
	if err != nil || len(records) != 2 {
		t.Fatalf("expected 2 records, got %d %v", len(records), err)
	}

	records, err = decodeScraperBody([]byte(`{"jobs":[{"job_title":"Go Dev"}]}`))
	if err != nil || len(records) != 1 {
		t.Fatalf("expected jobs envelope to decode, got %d %v", len(records), err)
	}

	cases := []string{``, `{"error":"rate limited"}`, `{"message":"?"}`, `"text"`, `[{]`}
	for _, body := range cases {
		if _, err := decodeScraperBody([]byte(body)); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
	if _, err := decodeScraperBody([]byte(`{"error":"rate limited"}`)); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestCloudScraperPostsQuery(t *testing.T) {
	doer := &fakeDoer{body: `[{"job_id":"1","job_title":"Go Dev","company":"Acme","location":"Berlin"}]`}
	src := NewCloudScraper(doer, "https://scraper.example.com/scrape-jobs")

	records, err := src.Search(context.Background(), models.SearchParams{Query: "Go Dev", Location: "Berlin", MaxJobs: 150})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 1 || records[0]["job_id"] != "1" {
		t.Fatalf("unexpected records %v", records)
	}
	req := doer.requests[0]
	if req.Method != fhttp.MethodPost || req.URL.Host != "scraper.example.com" {
		t.Fatalf("unexpected request %s %s", req.Method, req.URL)
	}
	if doer.bodies[0] != `{"jobTitle":"Go Dev","location":"Berlin","maxJobs":150}` {
		t.Fatalf("unexpected body %s", doer.bodies[0])
	}
}

func TestCloudScraperHTTPError(t *testing.T) {
	doer := &fakeDoer{status: fhttp.StatusBadGateway, body: "bad gateway"}
	_, err := NewCloudScraper(doer, "https://scraper.example.com").Search(context.Background(), models.SearchParams{Query: "x", Location: "y"})
	if !errors.Is(err, network.ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

const boardHTML = `
<!doctype html>
<html>
<head>
  <script type="application/ld+json">
  {
    "@context": "http://schema.org",
    "@type": "JobPosting",
    "title": "Go Developer",
    "hiringOrganization": {"name": "Acme"},
    "jobLocation": {"address": {"addressLocality": "Austin", "addressRegion": "TX", "addressCountry": "US"}},
    "url": "/jobs/1",
    "datePosted": "2024-01-15",
    "description": "Build &amp; run   APIs",
    "baseSalary": {"currency": "USD", "value": {"minValue": 100000, "maxValue": 150000}}
  }
  </script>
  <script type="application/ld+json">
  {
    "@graph": [
      {
        "@type": "JobPosting",
        "title": "Platform Engineer",
        "hiringOrganization": {"name": "Beta"},
        "jobLocationType": "TELECOMMUTE",
        "url": "https://example.com/job2",
        "datePosted": "2024-01-16"
      },
      {
        "@type": "JobPosting",
        "title": "Platform Engineer",
        "hiringOrganization": {"name": "Beta"},
        "url": "https://example.com/job2"
      }
    ]
  }
  </script>
  <script type="application/ld+json">not json</script>
</head>
<body></body>
</html>`

func TestParseJSONLD(t *testing.T) {
	records := ParseJSONLD(mustDoc(t, boardHTML), "https://board.example.com/search?q=go")
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first["job_url"] != "https://board.example.com/jobs/1" {
		t.Fatalf("expected absolute url, got %v", first["job_url"])
	}
	if first["location"] != "Austin, TX, US" {
		t.Fatalf("unexpected location %v", first["location"])
	}
	if first["salary_text"] != "100000 - 150000 USD" {
		t.Fatalf("unexpected salary %v", first["salary_text"])
	}
	if first["description"] != "Build & run APIs" {
		t.Fatalf("unexpected description %q", first["description"])
	}
	if records[1]["location"] != "Remote" {
		t.Fatalf("expected telecommute posting to be remote, got %v", records[1]["location"])
	}
}

func TestBoardRecordsNormalize(t *testing.T) {
	doer := &fakeDoer{body: boardHTML}
	board := NewBoard(doer, "https://board.example.com/search")

	records, err := board.Search(context.Background(), models.SearchParams{Query: "go developer", Location: "Austin", MaxJobs: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected MaxJobs to cap records, got %d", len(records))
	}
	if got := doer.requests[0].URL.Query(); got.Get("q") != "go developer" || got.Get("l") != "Austin" {
		t.Fatalf("unexpected query %v", got)
	}

	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	job := normalize.Record(records[0], now)
	if job.Title != "Go Developer" || job.Company != "Acme" || job.PostedText != "5 days ago" {
		t.Fatalf("unexpected normalized job %+v", job)
	}
	if job.JobID == "" || job.JobID == normalize.Placeholder {
		t.Fatalf("expected derived job id, got %q", job.JobID)
	}
}

func TestMockPostings(t *testing.T) {
	mock := NewMock()
	mock.now = func() time.Time { return time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC) }

	records, err := mock.Search(context.Background(), models.SearchParams{Query: "Data Analyst", Location: "Remote"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != mockCount {
		t.Fatalf("expected %d postings, got %d", mockCount, len(records))
	}

	companies := map[string]bool{}
	for _, record := range records {
		companies[record["company"].(string)] = true
		if record["salary_text"] != "$80,000 - $120,000" {
			t.Fatalf("unexpected salary %v", record["salary_text"])
		}
	}
	if len(companies) != len(mockCompanies) {
		t.Fatalf("expected %d companies, got %d", len(mockCompanies), len(companies))
	}

	jobs := normalize.Records(records, mock.now())
	if got := len(dedup.Filter(nil, jobs)); got != mockCount {
		t.Fatalf("mock postings must be distinct, got %d unique", got)
	}
}

func TestRegistry(t *testing.T) {
	cfg := config.Config{ScraperURL: "https://scraper.example.com"}
	sources, err := Registry(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("Registry() error = %v", err)
	}
	if _, err := Lookup(sources, "Cloud"); err != nil {
		t.Fatalf("expected cloud source: %v", err)
	}
	if _, err := Lookup(sources, NameMock); err != nil {
		t.Fatalf("expected mock source: %v", err)
	}
	if _, err := Lookup(sources, NameBoard); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("board must be absent without board_url, got %v", err)
	}
}

const cardsHTML = `<html><body>
<ul>
  <li><article>
    <a href="/jobs/101"><h2>Backend Engineer</h2></a>
    <span>Acme GmbH</span>
    <span>Berlin</span>
    <span>Neu</span>
    <p>Build reliable payment services in Go and Postgres.</p>
    <time datetime="2024-01-15T00:00:00Z">vor 5 Tagen</time>
  </article></li>
  <li><article>
    <a href="https://board.example.com/jobs/102">Data Engineer</a>
    <div>Beta AG</div>
    <div>Home-Office</div>
    <div>2 days ago</div>
  </article></li>
  <li><article><a href="/jobs/101">Backend Engineer</a></article></li>
</ul>
</body></html>`

func TestParseCards(t *testing.T) {
	records := ParseCards(mustDoc(t, cardsHTML), "https://board.example.com/search?q=engineer", "")
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first["job_title"] != "Backend Engineer" || first["company"] != "Acme GmbH" || first["location"] != "Berlin" {
		t.Fatalf("unexpected first record %+v", first)
	}
	if first["job_url"] != "https://board.example.com/jobs/101" {
		t.Fatalf("expected absolute url, got %v", first["job_url"])
	}
	if first["posted_date"] != "2024-01-15T00:00:00Z" {
		t.Fatalf("expected datetime attribute, got %v", first["posted_date"])
	}
	if first["description"] != "Build reliable payment services in Go and Postgres." {
		t.Fatalf("unexpected snippet %q", first["description"])
	}

	second := records[1]
	if second["company"] != "Beta AG" || second["location"] != "Remote" || second["posted_text"] != "2 days ago" {
		t.Fatalf("unexpected second record %+v", second)
	}
}

func TestBoardFallsBackToCardsAndPages(t *testing.T) {
	doer := &fakeDoer{body: cardsHTML}
	board := NewBoard(doer, "https://board.example.com/search").WithCards("")

	records, err := board.Search(context.Background(), models.SearchParams{Query: "engineer"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if len(doer.requests) != 2 {
		t.Fatalf("expected a second page request before stopping, got %d requests", len(doer.requests))
	}
	if got := doer.requests[1].URL.Query().Get("page"); got != "2" {
		t.Fatalf("expected page=2 on the second request, got %q", got)
	}
	if got := doer.requests[0].URL.Query().Get("page"); got != "" {
		t.Fatalf("first page should not carry a page parameter, got %q", got)
	}
}

func TestBoardFirstPageErrorFails(t *testing.T) {
	doer := &fakeDoer{status: fhttp.StatusForbidden, body: "blocked"}
	board := NewBoard(doer, "https://board.example.com/search")
	if _, err := board.Search(context.Background(), models.SearchParams{Query: "go"}); !errors.Is(err, network.ErrRequestFailed) {
		t.Fatalf("expected request failure, got %v", err)
	}
}
