package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/jobsearch/internal/apperr"
	"github.com/jimezsa/jobsearch/internal/config"
	"github.com/jimezsa/jobsearch/internal/network"
)

type ProxiesCmd struct {
	Check ProxyCheckCmd `cmd:"" help:"Validate proxies against a target URL."`
	List  ProxyListCmd  `cmd:"" help:"Print the proxies the service would rotate through."`
}

type ProxyCheckCmd struct {
	Target      string `help:"Target URL." default:"https://www.google.com"`
	Timeout     int    `help:"Timeout in seconds." default:"15"`
	Concurrency int    `help:"Proxies checked at once." default:"4"`
	Proxies     string `help:"Comma-separated proxy URLs (default: JOBSEARCH_PROXIES or proxies.txt)."`
}

type ProxyListCmd struct {
	Proxies string `help:"Comma-separated proxy URLs (default: JOBSEARCH_PROXIES or proxies.txt)."`
}

type ProxyCheckResult struct {
	Proxy     string `json:"proxy"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func (p *ProxyListCmd) Run(ctx *Context) error {
	proxies, err := config.LoadProxies(p.Proxies)
	if err != nil {
		return err
	}
	if ctx.JSONOutput {
		if proxies == nil {
			proxies = []string{}
		}
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(proxies)
	}
	for _, proxy := range proxies {
		fmt.Fprintln(ctx.Out, proxy)
	}
	return nil
}

func (p *ProxyCheckCmd) Run(ctx *Context) error {
	proxies, err := config.LoadProxies(p.Proxies)
	if err != nil {
		return err
	}
	if len(proxies) == 0 {
		return apperr.Input("proxies check", "no proxies configured")
	}

	results := make([]ProxyCheckResult, len(proxies))
	sem := make(chan struct{}, max(p.Concurrency, 1))
	var wg sync.WaitGroup
	for i, proxy := range proxies {
		i, proxy := i, proxy
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = p.check(ctx, proxy)
		}()
	}
	wg.Wait()

	return writeProxyResults(ctx, results)
}

func (p *ProxyCheckCmd) check(ctx *Context, proxy string) ProxyCheckResult {
	result := ProxyCheckResult{Proxy: proxy, Status: "error"}

	rotator, err := network.NewRotator([]string{proxy}, proxyBanDuration)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	client, err := network.NewClient(rotator, network.Options{
		TimeoutSeconds: p.Timeout,
		Logger:         ctx.Logger,
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req, err := fhttp.NewRequest(fhttp.MethodGet, p.Target, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := doWithTimeout(client, req, time.Duration(p.Timeout)*time.Second)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	_ = resp.Body.Close()

	result.LatencyMS = time.Since(start).Milliseconds()
	result.Status = fmt.Sprintf("%d", resp.StatusCode)
	return result
}

func doWithTimeout(client network.Doer, req *fhttp.Request, timeout time.Duration) (*fhttp.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()
	return client.Do(req.WithContext(ctx))
}

func writeProxyResults(ctx *Context, results []ProxyCheckResult) error {
	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if ctx.PlainText {
		for _, res := range results {
			line := []string{res.Proxy, res.Status, fmt.Sprintf("%d", res.LatencyMS), res.Error}
			fmt.Fprintln(ctx.Out, strings.Join(line, "\t"))
		}
		return nil
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "proxy\tstatus\tlatency_ms\terror")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.Proxy, res.Status, res.LatencyMS, res.Error)
	}
	return tw.Flush()
}
