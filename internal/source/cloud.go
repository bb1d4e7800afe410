package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/network"
)

// CloudScraper posts the query to a remote scraping service.
type CloudScraper struct {
	client   network.Doer
	endpoint string
}

func NewCloudScraper(client network.Doer, endpoint string) *CloudScraper {
	return &CloudScraper{client: client, endpoint: endpoint}
}

func (c *CloudScraper) Name() string {
	return NameCloud
}

func (c *CloudScraper) Search(ctx context.Context, params models.SearchParams) ([]map[string]any, error) {
	req, err := network.NewJSONRequest(ctx, fhttp.MethodPost, c.endpoint, models.SearchRequest{
		JobTitle: params.Query,
		Location: params.Location,
		MaxJobs:  params.MaxJobs,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if err := network.CheckStatus(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeScraperBody(data)
}

// decodeScraperBody accepts a JSON array of postings, an {"error": ...}
// object, or an object carrying a "jobs" array.
func decodeScraperBody(data []byte) ([]map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrUpstream)
	}

	switch data[0] {
	case '[':
		var records []map[string]any
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode postings: %w", err)
		}
		return records, nil
	case '{':
		var envelope struct {
			Error any              `json:"error"`
			Jobs  []map[string]any `json:"jobs"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("decode postings: %w", err)
		}
		if envelope.Error != nil && envelope.Error != false {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, envelope.Error)
		}
		if envelope.Jobs != nil {
			return envelope.Jobs, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected response shape", ErrUpstream)
}
