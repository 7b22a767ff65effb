package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/homed/internal/notify"
	"github.com/hazyhaar/homed/internal/service"
)

// Refresher re-scrapes services on a fixed interval and after navigations
// that land on a service page. Successful refreshes are pushed as
// SERVICE_UPDATE; failures wait for the next tick.
type Refresher struct {
	orch     *Orchestrator
	hub      *notify.Hub
	interval time.Duration
	settle   time.Duration
	logger   *slog.Logger
}

// RefresherConfig wires a Refresher.
type RefresherConfig struct {
	Orchestrator *Orchestrator
	Hub          *notify.Hub
	Interval     time.Duration // default 5m
	Settle       time.Duration // post-navigation delay, default 2s
	Logger       *slog.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(cfg RefresherConfig) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Refresher{
		orch:     cfg.Orchestrator,
		hub:      cfg.Hub,
		interval: cfg.Interval,
		settle:   cfg.Settle,
		logger:   cfg.Logger,
	}
}

// Run refreshes all services on a ticker. Blocks until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Warm the caches once on start so the first panel open has data.
	r.refreshAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshAll(ctx)
		}
	}
}

func (r *Refresher) refreshAll(ctx context.Context) {
	for _, svc := range service.All() {
		r.refresh(ctx, svc)
	}
}

func (r *Refresher) refresh(ctx context.Context, svc service.Name) {
	res := r.orch.FetchOrScrape(ctx, svc)
	if !res.Success {
		// Transient by assumption; the next tick retries.
		r.logger.Debug("refresh: scrape failed", "service", svc, "error", res.Error)
		return
	}
	r.hub.Publish(notify.Message{Type: notify.TypeServiceUpdate, Service: svc, Data: res.Data})
}

// OnNavigated reacts to a page load completing on url. When the URL matches
// a service pattern the cache entry is dropped and a re-scrape is scheduled
// after a settle delay, letting client-side rendering finish first.
func (r *Refresher) OnNavigated(ctx context.Context, url string) {
	svc, ok := service.MatchAny(url)
	if !ok {
		return
	}

	r.orch.Cache().Invalidate(svc)

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.settle):
		}
		r.refresh(ctx, svc)
	}()
}
