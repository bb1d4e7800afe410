// Package api talks to the job-search HTTP service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/jobsearch/internal/apperr"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/network"
)

const UserHeader = "X-User-Email"

var ErrNoUser = errors.New("no user configured; set --user or user_email")

type Client struct {
	http network.Doer
	base *url.URL
	user string
}

func New(doer network.Doer, baseURL, user string) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server url %q: missing scheme or host", baseURL)
	}
	return &Client{http: doer, base: base, user: strings.TrimSpace(user)}, nil
}

func (c *Client) User() string {
	return c.user
}

func (c *Client) Submit(ctx context.Context, req models.SearchRequest) (models.SearchAccepted, error) {
	var accepted models.SearchAccepted
	err := c.do(ctx, "submit search", fhttp.MethodPost, "/api/jobs/search", nil, req, &accepted)
	return accepted, err
}

func (c *Client) Status(ctx context.Context) (models.SearchStatus, error) {
	var status models.SearchStatus
	err := c.do(ctx, "search status", fhttp.MethodGet, "/api/jobs/status", nil, nil, &status)
	return status, err
}

func (c *Client) Results(ctx context.Context, perPage int) ([]map[string]any, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("page", "1")

	var page models.ResultsPage
	if err := c.do(ctx, "search results", fhttp.MethodGet, "/api/jobs/results", query, nil, &page); err != nil {
		return nil, err
	}
	return page.Jobs, nil
}

// Load returns the user's saved jobs.
func (c *Client) Load(ctx context.Context) ([]models.Job, error) {
	if c.user == "" {
		return nil, apperr.New(apperr.KindInput, "load saved jobs", ErrNoUser)
	}
	var saved models.SavedJobs
	if err := c.do(ctx, "load saved jobs", fhttp.MethodGet, "/api/saved-jobs/load", nil, nil, &saved); err != nil {
		return nil, err
	}
	return saved.Jobs, nil
}

// Save replaces the user's saved jobs.
func (c *Client) Save(ctx context.Context, jobs []models.Job) error {
	if c.user == "" {
		return apperr.New(apperr.KindInput, "save jobs", ErrNoUser)
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	body := map[string]any{"jobs": jobs}
	var ack struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, "save jobs", fhttp.MethodPost, "/api/saved-jobs/save", nil, body, &ack); err != nil {
		return err
	}
	if !ack.Success {
		return apperr.Response("save jobs", errors.New("server did not confirm the save"))
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	target := *c.base
	target.Path = strings.TrimRight(target.Path, "/") + path
	target.RawQuery = query.Encode()

	req, err := network.NewJSONRequest(ctx, method, target.String(), body)
	if err != nil {
		return apperr.Input(op, "%v", err)
	}
	if c.user != "" {
		req.Header.Set(UserHeader, c.user)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transport(op, err)
	}
	if err := network.CheckStatus(resp); err != nil {
		return statusError(op, err)
	}
	if err := network.DecodeJSON(resp, out); err != nil {
		return apperr.Response(op, err)
	}
	return nil
}

// statusError classifies a non-2xx answer by its code.
func statusError(op string, err error) error {
	var status *network.StatusError
	if !errors.As(err, &status) {
		return apperr.Transport(op, err)
	}
	if msg := errorMessage(status.Body); msg != "" {
		status.Body = msg
	}
	switch status.Code {
	case fhttp.StatusBadRequest, fhttp.StatusUnauthorized:
		return apperr.New(apperr.KindInput, op, err)
	case fhttp.StatusConflict, fhttp.StatusTooManyRequests:
		return apperr.New(apperr.KindConflict, op, err)
	default:
		return apperr.Transport(op, err)
	}
}

// errorMessage pulls the "error" field out of a JSON error body.
func errorMessage(body string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return ""
	}
	return payload.Error
}
