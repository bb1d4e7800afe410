package cmd

import (
	"errors"
	"io"
	"strings"

	"github.com/jimezsa/jobsearch/internal/api"
	"github.com/jimezsa/jobsearch/internal/apperr"
	"github.com/jimezsa/jobsearch/internal/config"
	"github.com/jimezsa/jobsearch/internal/network"
	"github.com/jimezsa/jobsearch/internal/ui"
	"github.com/rs/zerolog"
)

type Context struct {
	Out        io.Writer
	Err        io.Writer
	UI         *ui.UI
	Config     config.Config
	ConfigDir  string
	Logger     zerolog.Logger
	Verbose    bool
	JSONOutput bool
	PlainText  bool
	Version    string
	ColorMode  ui.ColorMode
	// HTTP replaces the tls-client transport used to reach the service.
	HTTP network.Doer
}

// ReportedError wraps a failure that already reached the reporter, so main
// exits non-zero without printing it twice.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string {
	return e.Err.Error()
}

func (e *ReportedError) Unwrap() error {
	return e.Err
}

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	var reported *ReportedError
	return errors.As(err, &reported)
}

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &ReportedError{Err: err}
}

// Reporter is the single surface every command failure goes through.
func (c *Context) Reporter() apperr.Reporter {
	if c == nil || c.UI == nil {
		return apperr.Discard
	}
	return c.UI.Reporter(c.Logger)
}

// APIClient talks to the configured job-search service.
func (c *Context) APIClient() (*api.Client, error) {
	if c.HTTP != nil {
		return api.New(c.HTTP, c.Config.ServerURL, c.Config.UserEmail)
	}
	doer, err := network.NewClient(nil, network.Options{
		TimeoutSeconds: 60,
		UserAgent:      userAgent(c.Version),
		Logger:         c.Logger,
	})
	if err != nil {
		return nil, err
	}
	return api.New(doer, c.Config.ServerURL, c.Config.UserEmail)
}

func userAgent(version string) string {
	fields := strings.Fields(version)
	if len(fields) == 0 {
		return "jobsearch-cli/dev"
	}
	return "jobsearch-cli/" + fields[0]
}
