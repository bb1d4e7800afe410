package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/jobsearch/internal/dedup"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/network"
	"github.com/jimezsa/jobsearch/internal/normalize"
)

const (
	descriptionLimit = 600
	// DefaultBoardPages bounds how many result pages one search walks.
	DefaultBoardPages = 5
)

// Board scrapes a job board's search pages. Listings come from schema.org
// JobPosting data; pages without it fall back to the listing cards. The
// board URL gets q, l and page query parameters.
type Board struct {
	client   network.Doer
	base     string
	maxPages int
	cards    string
}

func NewBoard(client network.Doer, base string) *Board {
	return &Board{client: client, base: base, maxPages: DefaultBoardPages, cards: DefaultCardSelector}
}

// WithCards sets the selector for listing-card anchors. Empty keeps the
// default.
func (b *Board) WithCards(selector string) *Board {
	if strings.TrimSpace(selector) != "" {
		b.cards = selector
	}
	return b
}

func (b *Board) Name() string {
	return NameBoard
}

// Search walks result pages until MaxJobs postings are collected, a page adds
// nothing new, or the page limit is reached.
func (b *Board) Search(ctx context.Context, params models.SearchParams) ([]map[string]any, error) {
	limit := params.MaxJobs
	seen := map[string]struct{}{}
	var records []map[string]any

	for page := 1; page <= b.maxPages; page++ {
		target, err := b.searchURL(params, page)
		if err != nil {
			return nil, err
		}
		doc, err := fetchDocument(ctx, b.client, target, nil)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			break
		}

		pageRecords := ParseJSONLD(doc, target)
		if len(pageRecords) == 0 {
			pageRecords = ParseCards(doc, target, b.cards)
		}

		added := 0
		for _, record := range pageRecords {
			key := recordKey(record)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			records = append(records, record)
			added++
			if limit > 0 && len(records) >= limit {
				return records, nil
			}
		}
		if added == 0 {
			break
		}
	}
	return records, nil
}

func (b *Board) searchURL(params models.SearchParams, page int) (string, error) {
	u, err := url.Parse(b.base)
	if err != nil {
		return "", fmt.Errorf("board url: %w", err)
	}
	values := u.Query()
	values.Set("q", params.Query)
	if params.Location != "" {
		values.Set("l", params.Location)
	}
	if page > 1 {
		values.Set("page", fmt.Sprintf("%d", page))
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

func fetchDocument(ctx context.Context, client network.Doer, target string, headers map[string]string) (*goquery.Document, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	applyHeaders(req, headers)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if err := network.CheckStatus(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return goquery.NewDocumentFromReader(resp.Body)
}

func applyHeaders(req *fhttp.Request, headers map[string]string) {
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["accept"]; !ok {
		headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	}
	if _, ok := headers["accept-language"]; !ok {
		headers["accept-language"] = "en-US,en;q=0.9"
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}

// ParseJSONLD extracts JobPosting entries from every ld+json script in doc.
// Relative posting URLs resolve against base.
func ParseJSONLD(doc *goquery.Document, base string) []map[string]any {
	var records []map[string]any
	seen := map[string]struct{}{}

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		data, err := decodeJSONLD(s.Text())
		if err != nil {
			return
		}

		for _, posting := range extractPostings(data) {
			record := recordFromPosting(posting, base)
			key := recordKey(record)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			records = append(records, record)
		}
	})

	return records
}

// recordKey identifies a scraped record by URL, or by its dedup key when the
// posting has no URL.
func recordKey(record map[string]any) string {
	if key := normalize.String(record["job_url"]); key != "" {
		return key
	}
	return dedup.Key(models.Job{
		Title:    normalize.String(record["job_title"]),
		Company:  normalize.String(record["company"]),
		Location: normalize.String(record["location"]),
	})
}

func decodeJSONLD(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "<!--")
	raw = strings.TrimSuffix(raw, "-->")
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "\u2028", "")
	raw = strings.ReplaceAll(raw, "\u2029", "")
	if raw == "" {
		return nil, fmt.Errorf("empty ld+json")
	}

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}

func extractPostings(data any) []map[string]any {
	var postings []map[string]any

	switch value := data.(type) {
	case []any:
		for _, item := range value {
			postings = append(postings, extractPostings(item)...)
		}
	case map[string]any:
		switch strings.ToLower(normalize.String(value["@type"], value["type"])) {
		case "jobposting":
			return append(postings, value)
		case "itemlist":
			postings = append(postings, extractPostings(value["itemListElement"])...)
		case "listitem":
			postings = append(postings, extractPostings(value["item"])...)
		}
		if graph, ok := value["@graph"]; ok {
			postings = append(postings, extractPostings(graph)...)
		}
		if main, ok := value["mainEntity"]; ok {
			postings = append(postings, extractPostings(main)...)
		}
	}

	return postings
}

func recordFromPosting(value map[string]any, base string) map[string]any {
	record := map[string]any{
		"job_title":   normalize.String(value["title"], value["name"]),
		"company":     normalize.String(normalize.Lookup(value["hiringOrganization"], "name"), value["hiringOrganization"]),
		"location":    locationFromJSONLD(value["jobLocation"]),
		"description": normalize.Truncate(normalize.CleanText(normalize.String(value["description"])), descriptionLimit),
		"job_url":     absoluteURL(base, normalize.String(value["url"], value["@id"])),
	}
	if id := normalize.String(normalize.Lookup(value["identifier"], "value"), value["identifier"]); id != "" {
		record["job_id"] = id
	}
	if salary := salaryFromJSONLD(value["baseSalary"]); salary != "" {
		record["salary_text"] = salary
	}
	if posted := normalize.String(value["datePosted"]); posted != "" {
		record["posted_date"] = posted
	}
	if record["location"] == "" && strings.EqualFold(normalize.String(value["jobLocationType"]), "TELECOMMUTE") {
		record["location"] = "Remote"
	}
	return record
}

func salaryFromJSONLD(value any) string {
	switch v := value.(type) {
	case map[string]any:
		currency := normalize.String(v["currency"])
		if amount := normalize.Lookup(v["value"], "value"); amount != nil {
			return strings.TrimSpace(normalize.String(amount) + " " + currency)
		}
		if amount := normalize.Lookup(v["value"], "minValue"); amount != nil {
			minStr := normalize.String(amount)
			maxStr := normalize.String(normalize.Lookup(v["value"], "maxValue"))
			if maxStr != "" {
				return strings.TrimSpace(minStr + " - " + maxStr + " " + currency)
			}
			return strings.TrimSpace(minStr + " " + currency)
		}
	case string:
		return strings.TrimSpace(v)
	}
	return ""
}

func locationFromJSONLD(value any) string {
	switch v := value.(type) {
	case []any:
		var parts []string
		for _, item := range v {
			if loc := locationFromJSONLD(item); loc != "" {
				parts = append(parts, loc)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		if address, ok := v["address"].(map[string]any); ok {
			return joinAddress(address)
		}
		return joinAddress(v)
	case string:
		return strings.TrimSpace(v)
	}
	return ""
}

func joinAddress(value map[string]any) string {
	keys := []string{"streetAddress", "addressLocality", "addressRegion", "postalCode", "addressCountry"}
	var cleaned []string
	for _, key := range keys {
		if part := normalize.String(value[key]); part != "" {
			cleaned = append(cleaned, part)
		}
	}
	return strings.Join(cleaned, ", ")
}

func absoluteURL(base string, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
