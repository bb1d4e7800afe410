// Package dedup filters postings by their composite title+company+location
// key. Upstream job ids are not reliable enough to identify a posting.
package dedup

import (
	"strings"
	"unicode"

	"github.com/jimezsa/jobsearch/internal/models"
)

// MergeStats captures stats for an accumulated result merge.
type MergeStats struct {
	TotalExisting int
	TotalIncoming int
	Added         int
	Dropped       int
	TotalOut      int
}

// Normalize lower-cases value and removes every whitespace character.
func Normalize(value string) string {
	value = strings.ToLower(value)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
}

// Key builds the composite dedup key for a job.
func Key(job models.Job) string {
	return Normalize(job.Title + job.Company + job.Location)
}

// Filter returns the entries of incoming whose key appears neither in
// existing nor earlier in incoming. Order of incoming is preserved.
func Filter(existing []models.Job, incoming []models.Job) []models.Job {
	keys := make(map[string]struct{}, len(existing)+len(incoming))
	for _, job := range existing {
		keys[Key(job)] = struct{}{}
	}

	out := make([]models.Job, 0, len(incoming))
	for _, job := range incoming {
		key := Key(job)
		if _, exists := keys[key]; exists {
			continue
		}
		keys[key] = struct{}{}
		out = append(out, job)
	}
	return out
}

// Merge appends the unseen entries of incoming to existing.
// Existing entries win collisions.
func Merge(existing []models.Job, incoming []models.Job) ([]models.Job, MergeStats) {
	stats := MergeStats{
		TotalExisting: len(existing),
		TotalIncoming: len(incoming),
	}

	fresh := Filter(existing, incoming)
	out := make([]models.Job, 0, len(existing)+len(fresh))
	out = append(out, existing...)
	out = append(out, fresh...)

	stats.Added = len(fresh)
	stats.Dropped = len(incoming) - len(fresh)
	stats.TotalOut = len(out)
	return out, stats
}
