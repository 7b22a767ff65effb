// Package archive closes tabs the user has abandoned. Each space sets an
// idle threshold; a sweep walks every window bound to a space and closes
// its stale tabs, leaving pinned and foldered URLs alone.
package archive

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/homed/internal/store"
)

// DefaultInterval is the sweep period.
const DefaultInterval = time.Hour

// Tab is the slice of live tab state the sweep needs.
type Tab struct {
	ID         string
	WindowID   int64
	URL        string
	LastActive time.Time
}

// Lister supplies the live tabs. Backed by the browser registry.
type Lister interface {
	ListTabs() []Tab
}

// Closer closes a tab by ID. Backed by the browser registry.
type Closer interface {
	CloseTab(ctx context.Context, id string) error
}

// Spaces is the slice of the store the sweep reads.
type Spaces interface {
	WindowBindings(ctx context.Context) (map[int64]string, error)
	Space(ctx context.Context, spaceID string) (store.Space, error)
}

// Archiver runs the periodic sweep.
type Archiver struct {
	spaces   Spaces
	tabs     Lister
	closer   Closer
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Config wires an Archiver.
type Config struct {
	Spaces   Spaces
	Tabs     Lister
	Closer   Closer
	Interval time.Duration
	Logger   *slog.Logger
}

// New creates an Archiver.
func New(cfg Config) *Archiver {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Archiver{
		spaces:   cfg.Spaces,
		tabs:     cfg.Tabs,
		closer:   cfg.Closer,
		interval: cfg.Interval,
		now:      time.Now,
		logger:   cfg.Logger,
	}
}

// Run sweeps on a ticker until ctx is cancelled. No sweep runs at start;
// activity data right after attach is too thin to close anything on.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep(ctx)
		}
	}
}

// Sweep closes stale tabs in every space-bound window. Returns the number
// of tabs closed.
func (a *Archiver) Sweep(ctx context.Context) int {
	bindings, err := a.spaces.WindowBindings(ctx)
	if err != nil {
		a.logger.Warn("archive: read window bindings", "error", err)
		return 0
	}

	tabs := a.tabs.ListTabs()
	closed := 0
	for windowID, spaceID := range bindings {
		sp, err := a.spaces.Space(ctx, spaceID)
		if err != nil {
			continue
		}
		closed += a.sweepWindow(ctx, windowID, sp, tabs)
	}
	if closed > 0 {
		a.logger.Info("archive: sweep closed tabs", "count", closed)
	}
	return closed
}

func (a *Archiver) sweepWindow(ctx context.Context, windowID int64, sp store.Space, tabs []Tab) int {
	keep := make(map[string]bool, len(sp.PinnedEntries))
	for _, e := range sp.PinnedEntries {
		keep[e.URL] = true
	}
	// Foldered URLs are organized work; never archive them either.
	for _, f := range sp.PinnedFolders {
		for _, u := range f.EntryURLs {
			keep[u] = true
		}
	}

	cutoff := a.now().Add(-time.Duration(sp.AutoArchiveHours) * time.Hour)
	closed := 0
	for _, t := range tabs {
		if t.WindowID != windowID || t.URL == "" {
			continue
		}
		if internalURL(t.URL) || keep[t.URL] {
			continue
		}
		if !t.LastActive.Before(cutoff) {
			continue
		}
		if err := a.closer.CloseTab(ctx, t.ID); err != nil {
			a.logger.Debug("archive: close failed", "tab", t.ID, "error", err)
			continue
		}
		a.logger.Debug("archive: closed idle tab", "tab", t.ID, "url", t.URL,
			"idle", a.now().Sub(t.LastActive).Round(time.Minute))
		closed++
	}
	return closed
}

// internalURL reports browser UI pages that must never be touched.
func internalURL(url string) bool {
	return strings.HasPrefix(url, "chrome://") ||
		strings.HasPrefix(url, "edge://") ||
		strings.HasPrefix(url, "devtools://")
}
