package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobsearch/internal/normalize"
)

// DefaultCardSelector matches anchors that usually lead to a posting.
const DefaultCardSelector = "a[href*='/job'], a[href*='stellenangebote--'], a.tapItem"

// ParseCards reads listings from the visible result cards. Each anchor
// matching selector is one posting; its enclosing card supplies the company,
// location, snippet and posting date by line position.
func ParseCards(doc *goquery.Document, base string, selector string) []map[string]any {
	if strings.TrimSpace(selector) == "" {
		selector = DefaultCardSelector
	}
	var records []map[string]any
	seen := map[string]struct{}{}

	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		link := absoluteURL(base, strings.TrimSpace(s.AttrOr("href", "")))
		if link == "" {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}

		title := normalize.CleanText(s.Find("h2, h3").First().Text())
		if title == "" {
			title = normalize.CleanText(s.Text())
		}
		if title == "" {
			return
		}

		card := cardForAnchor(s)
		fields := parseCard(card, title)
		record := map[string]any{
			"job_title":   title,
			"company":     fields.company,
			"location":    fields.location,
			"description": normalize.Truncate(fields.snippet, descriptionLimit),
			"job_url":     link,
		}
		if fields.postedDate != "" {
			record["posted_date"] = fields.postedDate
		} else if fields.posted != "" {
			record["posted_text"] = fields.posted
		}
		if fields.location == "" && fields.remote {
			record["location"] = "Remote"
		}

		seen[link] = struct{}{}
		records = append(records, record)
	})

	return records
}

func cardForAnchor(s *goquery.Selection) *goquery.Selection {
	for _, tag := range []string{"article", "li", "section"} {
		if card := s.Closest(tag); card.Length() > 0 {
			return card
		}
	}
	if card := s.Closest("div"); card.Length() > 0 {
		return card
	}
	return s.Parent()
}

type cardFields struct {
	company    string
	location   string
	snippet    string
	posted     string
	postedDate string
	remote     bool
}

func parseCard(card *goquery.Selection, title string) cardFields {
	var fields cardFields
	if card == nil || card.Length() == 0 {
		return fields
	}

	if stamp := strings.TrimSpace(card.Find("time").First().AttrOr("datetime", "")); stamp != "" {
		if _, err := normalize.ParseTime(stamp); err == nil {
			fields.postedDate = stamp
		}
	}

	var candidates []string
	for _, line := range cardLines(card, title) {
		switch {
		case isRemoteLine(line):
			fields.remote = true
		case isPostedLine(line):
			if fields.posted == "" {
				fields.posted = line
			}
		case isNoiseLine(line):
		default:
			candidates = append(candidates, line)
		}
	}

	if len(candidates) > 0 {
		fields.company = candidates[0]
	}
	if len(candidates) > 1 {
		fields.location = candidates[1]
	}
	if len(candidates) > 2 {
		fields.snippet = candidates[2]
		for _, line := range candidates[2:] {
			if len(line) >= 30 {
				fields.snippet = line
				break
			}
		}
	}
	return fields
}

// cardLines splits the card's text into distinct non-empty lines, leaving
// out the title. Block elements end a line.
func cardLines(card *goquery.Selection, title string) []string {
	var raw []string
	card.Find("*").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		raw = append(raw, s.Text())
	})

	out := make([]string, 0, len(raw))
	seen := map[string]struct{}{}
	for _, part := range raw {
		line := normalize.CleanText(part)
		if line == "" || line == title {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

func isRemoteLine(line string) bool {
	value := strings.ToLower(line)
	return value == "remote" ||
		strings.Contains(value, "home-office") ||
		strings.Contains(value, "homeoffice") ||
		strings.Contains(value, "work from home")
}

func isPostedLine(line string) bool {
	value := strings.ToLower(line)
	if strings.HasSuffix(value, " ago") || strings.HasPrefix(value, "vor ") {
		return true
	}
	switch value {
	case "today", "yesterday", "just posted", "heute", "gestern":
		return true
	}
	return false
}

func isNoiseLine(line string) bool {
	value := strings.ToLower(line)
	switch value {
	case "new", "neu", "top-job", "save", "apply", "easy apply", "gehalt", "mehr":
		return true
	}
	return strings.Contains(value, "gehalt anzeigen") ||
		strings.Contains(value, "schnelle bewerbung") ||
		strings.Contains(value, "anschreiben nicht erforderlich")
}
