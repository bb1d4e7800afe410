// Package server exposes the job-search service and per-user saved jobs
// over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jimezsa/jobsearch/internal/search"
	"github.com/jimezsa/jobsearch/internal/store"
	"github.com/rs/zerolog"
)

// UserHeader carries the caller's identity.
const UserHeader = "X-User-Email"

type Options struct {
	Search       *search.Service
	Saved        store.SavedStore
	Logger       zerolog.Logger
	AllowOrigins []string
	Now          func() time.Time
}

type Server struct {
	search *search.Service
	saved  store.SavedStore
	logger zerolog.Logger
	now    func() time.Time
	router *gin.Engine
}

func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		search: opts.Search,
		saved:  opts.Saved,
		logger: opts.Logger,
		now:    opts.Now,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(opts.Logger))
	r.Use(cors.New(corsConfig(opts.AllowOrigins)))

	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		jobs := api.Group("/jobs")
		jobs.POST("/search", s.startSearch)
		jobs.GET("/status", s.status)
		jobs.GET("/results", s.results)

		saved := api.Group("/saved-jobs", requireUser)
		saved.GET("/load", s.loadSaved)
		saved.POST("/save", s.saveSaved)
	}

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info().Str("addr", addr).Msg("server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", UserHeader}
	config.AllowAllOrigins = len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			config.AllowAllOrigins = true
		}
	}
	if !config.AllowAllOrigins {
		config.AllowOrigins = origins
	}
	return config
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
