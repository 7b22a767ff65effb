package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/homed/internal/notify"
)

// TabState is one live tab as the registry sees it. LastActive is the last
// time the tab changed URL or title, the observable proxy for use.
type TabState struct {
	ID         string    `json:"id"`
	WindowID   int64     `json:"windowId"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	LastActive time.Time `json:"lastActive"`
}

// Registry mirrors the browser's tab population from DevTools target
// events. It feeds the navigation watcher, pushes tab-change
// notifications, and serves the tab list for pinning and archival.
type Registry struct {
	mgr *Manager
	hub *notify.Hub

	// OnNavigated fires after a tab lands on a new URL.
	onNavigated func(ctx context.Context, url string)
	// OnClosed fires when a tab disappears, with its last known state.
	onClosed func(ctx context.Context, state TabState)

	logger *slog.Logger

	mu   sync.Mutex
	tabs map[proto.TargetTargetID]TabState
}

// RegistryConfig wires a Registry.
type RegistryConfig struct {
	Manager     *Manager
	Hub         *notify.Hub
	OnNavigated func(ctx context.Context, url string)
	OnClosed    func(ctx context.Context, state TabState)
	Logger      *slog.Logger
}

// NewRegistry creates a Registry. Call Run to start tracking.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		mgr:         cfg.Manager,
		hub:         cfg.Hub,
		onNavigated: cfg.OnNavigated,
		onClosed:    cfg.OnClosed,
		logger:      cfg.Logger,
		tabs:        make(map[proto.TargetTargetID]TabState),
	}
}

// Run primes the registry from the current tab population and then follows
// target events. Blocks until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	b := r.mgr.Browser()
	if b == nil {
		return fmt.Errorf("browser: not connected")
	}

	if err := r.prime(ctx); err != nil {
		return err
	}

	wait := b.Context(ctx).EachEvent(
		func(e *proto.TargetTargetCreated) {
			if e.TargetInfo.Type != "page" {
				return
			}
			r.upsert(ctx, e.TargetInfo)
		},
		func(e *proto.TargetTargetInfoChanged) {
			if e.TargetInfo.Type != "page" {
				return
			}
			r.upsert(ctx, e.TargetInfo)
		},
		func(e *proto.TargetTargetDestroyed) {
			r.remove(ctx, e.TargetID)
		},
	)
	wait()
	return ctx.Err()
}

// prime seeds the registry with the tabs already open at startup.
func (r *Registry) prime(ctx context.Context) error {
	b := r.mgr.Browser()
	pages, err := b.Pages()
	if err != nil {
		return fmt.Errorf("browser: list pages: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pages {
		info, err := p.Context(ctx).Info()
		if err != nil || info.Type != "page" {
			continue
		}
		r.tabs[p.TargetID] = TabState{
			ID:         string(p.TargetID),
			WindowID:   r.windowID(p.TargetID),
			URL:        info.URL,
			Title:      info.Title,
			LastActive: time.Now(),
		}
	}
	r.logger.Info("browser: registry primed", "tabs", len(r.tabs))
	return nil
}

func (r *Registry) upsert(ctx context.Context, info *proto.TargetTargetInfo) {
	r.mu.Lock()
	prev, known := r.tabs[info.TargetID]
	state := TabState{
		ID:         string(info.TargetID),
		WindowID:   prev.WindowID,
		URL:        info.URL,
		Title:      info.Title,
		LastActive: time.Now(),
	}
	if !known {
		state.WindowID = r.windowID(info.TargetID)
	}
	if known && prev.URL == info.URL && prev.Title == info.Title {
		// Attachment churn, not a user-visible change. Keep the old
		// activity time.
		state.LastActive = prev.LastActive
		r.tabs[info.TargetID] = state
		r.mu.Unlock()
		return
	}
	r.tabs[info.TargetID] = state
	r.mu.Unlock()

	r.hub.Publish(notify.Message{Type: notify.TypeTabsChanged, WindowID: state.WindowID})
	if (!known || prev.URL != info.URL) && r.onNavigated != nil {
		r.onNavigated(ctx, info.URL)
	}
}

func (r *Registry) remove(ctx context.Context, id proto.TargetTargetID) {
	r.mu.Lock()
	state, known := r.tabs[id]
	delete(r.tabs, id)
	r.mu.Unlock()

	if !known {
		return
	}
	r.hub.Publish(notify.Message{
		Type:     notify.TypeTabClosed,
		WindowID: state.WindowID,
		Tab:      &notify.TabInfo{URL: state.URL, Title: state.Title},
	})
	if r.onClosed != nil {
		r.onClosed(ctx, state)
	}
}

// windowID resolves the browser window containing a target. Zero when the
// browser cannot say; callers treat that as "no window".
func (r *Registry) windowID(id proto.TargetTargetID) int64 {
	b := r.mgr.Browser()
	if b == nil {
		return 0
	}
	res, err := proto.BrowserGetWindowForTarget{TargetID: id}.Call(b)
	if err != nil {
		r.logger.Debug("browser: window lookup failed", "target", id, "error", err)
		return 0
	}
	return int64(res.WindowID)
}

// Snapshot lists the live tabs. Order is unspecified.
func (r *Registry) Snapshot() []TabState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TabState, 0, len(r.tabs))
	for _, s := range r.tabs {
		out = append(out, s)
	}
	return out
}

// CloseTab closes a tab by registry ID.
func (r *Registry) CloseTab(ctx context.Context, id string) error {
	b := r.mgr.Browser()
	if b == nil {
		return fmt.Errorf("browser: not connected")
	}
	page, err := b.PageFromTarget(proto.TargetTargetID(id))
	if err != nil {
		return fmt.Errorf("browser: close tab %s: %w", id, err)
	}
	if err := page.Close(); err != nil {
		return fmt.Errorf("browser: close tab %s: %w", id, err)
	}
	return nil
}
