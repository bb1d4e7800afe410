package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimezsa/jobsearch/internal/config"
	"github.com/jimezsa/jobsearch/internal/network"
	"github.com/jimezsa/jobsearch/internal/search"
	"github.com/jimezsa/jobsearch/internal/server"
	"github.com/jimezsa/jobsearch/internal/source"
	"github.com/jimezsa/jobsearch/internal/store"
)

const proxyBanDuration = 10 * time.Minute

type ServeCmd struct {
	Addr    string `help:"Listen address (default: listen_addr)."`
	Source  string `help:"Upstream source: cloud, board, mock (default: source)."`
	Proxies string `help:"Comma-separated proxy URLs for upstream requests."`
}

func (s *ServeCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	if s.Addr != "" {
		cfg.ListenAddr = s.Addr
	}
	if s.Source != "" {
		cfg.Source = s.Source
	}
	ttl, err := cfg.TTL()
	if err != nil {
		return err
	}

	rotator, err := proxyRotator(s.Proxies)
	if err != nil {
		return err
	}
	sources, err := source.Registry(cfg, rotator, ctx.Logger.With().Str("component", "source").Logger())
	if err != nil {
		return err
	}
	primary, err := source.Lookup(sources, cfg.Source)
	if err != nil {
		return err
	}
	var fallback source.Source
	if cfg.MockFallback && primary.Name() != source.NameMock {
		fallback = sources[source.NameMock]
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := store.OpenResults(runCtx, cfg)
	if err != nil {
		return err
	}
	defer results.Close()

	savedStore, err := store.OpenSaved(runCtx, cfg)
	if err != nil {
		return err
	}
	defer savedStore.Close()

	svc := search.NewService(search.Options{
		Source:   primary,
		Fallback: fallback,
		Results:  results,
		MaxJobs:  cfg.MaxJobs,
		Logger:   ctx.Logger.With().Str("component", "search").Logger(),
	})
	defer svc.Close()
	if err := svc.StartPurge(cfg.PurgeSchedule, ttl); err != nil {
		return err
	}

	if !ctx.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(server.Options{
		Search:       svc,
		Saved:        savedStore,
		Logger:       ctx.Logger,
		AllowOrigins: cfg.AllowOrigins,
	})

	ctx.Logger.Info().
		Str("source", primary.Name()).
		Bool("mock_fallback", fallback != nil).
		Str("result_store", cfg.ResultStore).
		Str("saved_store", cfg.SavedStore).
		Int("proxies", rotatorLen(rotator)).
		Msg("starting job-search service")
	return srv.Run(runCtx, cfg.ListenAddr)
}

// proxyRotator returns nil when no proxies are configured.
func proxyRotator(flagValue string) (*network.Rotator, error) {
	proxies, err := config.LoadProxies(flagValue)
	if err != nil {
		return nil, err
	}
	if len(proxies) == 0 {
		return nil, nil
	}
	return network.NewRotator(proxies, proxyBanDuration)
}

func rotatorLen(r *network.Rotator) int {
	if r == nil {
		return 0
	}
	return r.Len()
}
