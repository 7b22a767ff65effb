// Package scrape implements the cache-coordinated scrape orchestration
// core: locate or provision a backing tab, ensure the extractor program is
// present, message it under a timeout, and cache results.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/homed/internal/extractor"
	"github.com/hazyhaar/homed/internal/record"
	"github.com/hazyhaar/homed/internal/service"
)

// DefaultMessageTimeout bounds one scrape exchange with a tab.
const DefaultMessageTimeout = 5 * time.Second

// Tab is a handle to a candidate browser tab.
type Tab interface {
	ID() string
	URL() string
}

// Locator finds or provisions tabs matching a service's URL predicate.
type Locator interface {
	Locate(ctx context.Context, desc service.Descriptor) ([]Tab, error)
}

// Guard ensures the extractor program is alive in a tab's execution
// context, injecting it when the liveness probe misses.
type Guard interface {
	Ensure(ctx context.Context, tab Tab, ex extractor.Extractor) error
}

// Bridge performs one request/response exchange with a tab-resident
// extractor. A late response past the timeout is discarded, never queued.
type Bridge interface {
	Send(ctx context.Context, tab Tab, msgType string, timeout time.Duration) (json.RawMessage, error)
}

// GitHubSource is the direct fetch path for the GitHub service.
type GitHubSource interface {
	Fetch(ctx context.Context) ([]record.PullRequest, error)
}

// Result is the flattened outcome surfaced to callers. FetchOrScrape never
// returns a Go error; every failure path resolves here.
type Result struct {
	Success bool            `json:"success"`
	Data    []record.Record `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Orchestrator composes cache, locator, guard, bridge, and the GitHub
// fetch path into FetchOrScrape. It owns the cache.
type Orchestrator struct {
	cache          *Cache
	locator        Locator
	guard          Guard
	bridge         Bridge
	github         GitHubSource
	messageTimeout time.Duration
	logger         *slog.Logger
}

// Config wires an Orchestrator.
type Config struct {
	Cache          *Cache
	Locator        Locator
	Guard          Guard
	Bridge         Bridge
	GitHub         GitHubSource
	MessageTimeout time.Duration
	Logger         *slog.Logger
}

// New creates an Orchestrator. A nil cache gets a fresh one with the
// default TTL.
func New(cfg Config) *Orchestrator {
	if cfg.Cache == nil {
		cfg.Cache = NewCache(DefaultTTL)
	}
	if cfg.MessageTimeout <= 0 {
		cfg.MessageTimeout = DefaultMessageTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		cache:          cfg.Cache,
		locator:        cfg.Locator,
		guard:          cfg.Guard,
		bridge:         cfg.Bridge,
		github:         cfg.GitHub,
		messageTimeout: cfg.MessageTimeout,
		logger:         cfg.Logger,
	}
}

// Cache exposes the orchestrator-owned cache for invalidation by the
// navigation watcher.
func (o *Orchestrator) Cache() *Cache { return o.cache }

// FetchOrScrape returns cached data when fresh, otherwise performs the
// service's acquisition path and caches the outcome.
func (o *Orchestrator) FetchOrScrape(ctx context.Context, svc service.Name) Result {
	if !service.Valid(svc) {
		return Result{Success: false, Error: fmt.Sprintf("unknown service %q", svc)}
	}

	if data, ok := o.cache.Get(svc); ok {
		return Result{Success: true, Data: data}
	}

	if svc == service.GitHub {
		return o.fetchGitHub(ctx)
	}
	return o.scrapeViaTabs(ctx, svc)
}

func (o *Orchestrator) fetchGitHub(ctx context.Context) Result {
	prs, err := o.github.Fetch(ctx)
	if err != nil {
		return Result{Success: false, Error: (&ErrGitHubFetch{Cause: err}).Error()}
	}
	data := record.PullRequests(prs)
	o.cache.Put(service.GitHub, data)
	o.logger.Debug("scrape: github fetched", "count", len(prs))
	return Result{Success: true, Data: data}
}

// scrapeViaTabs tries each candidate tab in enumeration order, sequentially,
// stopping at the first success. One tab's failure never aborts the rest.
func (o *Orchestrator) scrapeViaTabs(ctx context.Context, svc service.Name) Result {
	desc, ok := service.Lookup(svc)
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("unknown service %q", svc)}
	}

	ex, err := extractor.For(svc)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	tabs, err := o.locator.Locate(ctx, desc)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	for _, tab := range tabs {
		if err := o.guard.Ensure(ctx, tab, ex); err != nil {
			o.logger.Debug("scrape: inject failed", "service", svc, "tab", tab.ID(), "error", err)
			continue
		}

		raw, err := o.bridge.Send(ctx, tab, desc.ScrapeName, o.messageTimeout)
		if err != nil {
			o.logger.Debug("scrape: tab scrape failed", "service", svc, "tab", tab.ID(), "error", err)
			continue
		}

		data, err := ex.Decode(raw)
		if err != nil {
			o.logger.Debug("scrape: decode failed", "service", svc, "tab", tab.ID(), "error", err)
			continue
		}

		o.cache.Put(svc, data)
		o.logger.Debug("scrape: tab scraped", "service", svc, "tab", tab.ID(), "count", len(data))
		return Result{Success: true, Data: data}
	}

	return Result{Success: false, Error: (&ErrNoTabsResponded{Service: string(svc)}).Error()}
}
