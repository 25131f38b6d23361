// Package app assembles the dashboard services from configuration.
package app

import (
	"net/http"

	"go.uber.org/zap"

	"stockdash/internal/api"
	"stockdash/internal/cache"
	"stockdash/internal/config"
	"stockdash/internal/httpx"
	"stockdash/internal/market"
	"stockdash/internal/provider"
	"stockdash/internal/provider/ratelimit"
	"stockdash/internal/provider/rss"
	"stockdash/internal/provider/yahoo"
	"stockdash/internal/scheduler"
	"stockdash/internal/search"
	"stockdash/internal/session"
)

// App holds the long-lived services shared by every entry point.
type App struct {
	Config   config.Config
	Log      *zap.Logger
	Provider provider.Provider
	Cache    *cache.Cache
	Market   *market.Service
	Search   *search.Resolver
	Sessions *session.Manager
}

// New wires the Yahoo client, rate limiter, cache and services.
func New(cfg config.Config, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}

	httpClient := httpx.New(cfg.HTTP.Timeout)
	httpClient.UserAgent = cfg.HTTP.UserAgent

	var p provider.Provider = yahoo.NewClient(
		yahoo.WithHTTPClient(httpClient),
		yahoo.WithBaseURL(cfg.Yahoo.BaseURL),
		yahoo.WithHeader(http.Header{"Accept-Language": []string{"en-IN,en;q=0.9"}}),
	)
	p = ratelimit.Wrap(p, Limiter(cfg.Yahoo))

	c := cache.New(
		cache.WithFailureTTL(cfg.Cache.FailureTTL),
		cache.WithMaxItems(cfg.Cache.MaxItems),
		cache.WithFetchTimeout(cfg.Server.RequestTimeout),
		cache.WithLogger(log.Named("cache")),
	)

	opts := []market.Option{
		market.WithTTLs(cfg.Cache.TTL),
		market.WithConcurrency(cfg.Batch.Concurrency),
		market.WithLogger(log.Named("market")),
	}
	if cfg.News.RSSEnabled && len(cfg.News.Feeds) > 0 {
		feeds := rss.New(cfg.News.Feeds, httpClient.HTTP, cfg.HTTP.UserAgent, log.Named("rss"))
		opts = append(opts, market.WithMarketFeeds(feeds))
	}

	return &App{
		Config:   cfg,
		Log:      log,
		Provider: p,
		Cache:    c,
		Market:   market.New(p, c, opts...),
		Search:   search.NewResolver(p, c, cfg.Cache.TTL.Search, log.Named("search")),
		Sessions: session.NewManager(cfg.Session.CookieName, cfg.Session.IdleTimeout),
	}
}

// Limiter picks the Yahoo rate limiter: a token bucket when a per-minute
// budget is set, otherwise a minimum interval, otherwise none.
func Limiter(y config.Yahoo) ratelimit.Limiter {
	switch {
	case y.MaxRequestsPerMinute > 0:
		burst := y.Burst
		if burst <= 0 {
			burst = 1
		}
		return ratelimit.NewTokenBucket(y.RequestsPerSecond(), burst)
	case y.MinInterval > 0:
		return ratelimit.NewMinInterval(y.MinInterval)
	}
	return nil
}

// Scheduler returns a scheduler with the cache purge and session sweep jobs
// registered but not started.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(a.Log.Named("scheduler"))
	err := s.RegisterAll(
		scheduler.Job{Name: "cache purge", Spec: a.Config.Cache.PurgeSchedule, Run: a.Cache.Purge},
		scheduler.Job{Name: "session sweep", Spec: a.Config.Session.SweepSchedule, Run: a.Sessions.Sweep},
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Server returns the HTTP API over the app's services.
func (a *App) Server() *api.Server {
	return api.NewServer(api.Config{
		RequestTimeout: a.Config.Server.RequestTimeout,
		CORSOrigins:    a.Config.Server.CORSOrigins,
		MaxBodyBytes:   a.Config.Server.MaxBodyBytes,
		NewsCount:      a.Config.News.Count,
	}, a.Market, a.Search, a.Sessions, a.Log.Named("api"))
}
