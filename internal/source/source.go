// Package source fetches raw postings from upstream job sources. Every
// source answers with wire-shaped records that the normalizer turns into
// models.Job values.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jimezsa/jobsearch/internal/config"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/network"
	"github.com/rs/zerolog"
)

const (
	NameCloud = "cloud"
	NameBoard = "board"
	NameMock  = "mock"
)

var (
	ErrUpstream      = errors.New("upstream error")
	ErrUnknownSource = errors.New("unknown source")
)

type Source interface {
	Name() string
	Search(ctx context.Context, params models.SearchParams) ([]map[string]any, error)
}

// Registry builds every source cfg can support. The mock source is always
// present.
func Registry(cfg config.Config, rotator *network.Rotator, logger zerolog.Logger) (map[string]Source, error) {
	makeClient := func(userAgent string) (*network.Client, error) {
		return network.NewClient(rotator, network.Options{
			TimeoutSeconds: 120,
			UserAgent:      userAgent,
			Logger:         logger,
		})
	}

	sources := map[string]Source{
		NameMock: NewMock(),
	}

	if strings.TrimSpace(cfg.ScraperURL) != "" {
		client, err := makeClient("jobsearch/1.0")
		if err != nil {
			return nil, err
		}
		sources[NameCloud] = NewCloudScraper(client, cfg.ScraperURL)
	}

	if strings.TrimSpace(cfg.BoardURL) != "" {
		client, err := makeClient("")
		if err != nil {
			return nil, err
		}
		sources[NameBoard] = NewBoard(client, cfg.BoardURL).WithCards(cfg.BoardCards)
	}

	return sources, nil
}

// Lookup returns the source registered under name.
func Lookup(sources map[string]Source, name string) (Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if src, ok := sources[name]; ok {
		return src, nil
	}
	names := make([]string, 0, len(sources))
	for key := range sources {
		names = append(names, key)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownSource, name, strings.Join(names, ", "))
}
