package cmd

import "github.com/alecthomas/kong"

type CLI struct {
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto"`
	JSON    bool   `help:"JSON output to stdout; disables colors."`
	Plain   bool   `help:"TSV output to stdout; disables colors."`
	Verbose bool   `help:"Enable debug logging."`
	Server  string `help:"Job-search service URL (overrides server_url)."`
	User    string `help:"Email that owns saved jobs (overrides user_email)."`

	VersionFlag kong.VersionFlag `help:"Print version."`

	Version VersionCmd `cmd:"" help:"Print version."`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration."`
	Serve   ServeCmd   `cmd:"" help:"Run the job-search service."`
	Search  SearchCmd  `cmd:"" help:"Search jobs through the service."`
	Saved   SavedCmd   `cmd:"" help:"Manage saved jobs."`
	Proxies ProxiesCmd `cmd:"" help:"Proxy utilities."`
}

func NewCLI() *CLI {
	return &CLI{}
}
