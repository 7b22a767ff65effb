// Command homed is the browser companion daemon: it attaches to the user's
// Chrome over DevTools, scrapes GitHub, Slack, and Calendar attention
// surfaces from live tabs, and manages spaces and saved workspaces over a
// local SQLite store. A small HTTP API on localhost is the panel surface.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/homed/internal/archive"
	"github.com/hazyhaar/homed/internal/browser"
	"github.com/hazyhaar/homed/internal/config"
	"github.com/hazyhaar/homed/internal/notify"
	"github.com/hazyhaar/homed/internal/panel"
	"github.com/hazyhaar/homed/internal/scrape"
	"github.com/hazyhaar/homed/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (empty uses defaults)")
	logLevel := flag.String("log-level", "info", "debug, info, warn, or error")
	flag.Parse()

	var lvl slog.Level
	switch *logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Browser attachment.
	mgr := browser.NewManager(browser.Config{
		RemoteURL:       cfg.Browser.Remote,
		Headless:        cfg.Browser.Headless,
		RecycleInterval: cfg.Browser.RecycleInterval,
		MemoryLimit:     cfg.Browser.MemoryLimit,
		Logger:          logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Close()

	// Persistence.
	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	hub := notify.NewHub()

	// Scrape pipeline.
	orch := scrape.New(scrape.Config{
		Cache: scrape.NewCache(cfg.Scrape.CacheTTL),
		Locator: browser.NewLocator(browser.LocatorConfig{
			Manager:     mgr,
			Settings:    st,
			LoadTimeout: cfg.Scrape.LoadTimeout,
			Logger:      logger,
		}),
		Guard:          browser.NewGuard(browser.GuardConfig{Logger: logger}),
		Bridge:         browser.NewBridge(logger),
		GitHub:         scrape.NewGitHubFetcher(nil, mgr, logger),
		MessageTimeout: cfg.Scrape.MessageTimeout,
		Logger:         logger,
	})
	refresher := scrape.NewRefresher(scrape.RefresherConfig{
		Orchestrator: orch,
		Hub:          hub,
		Interval:     cfg.Scrape.RefreshInterval,
		Logger:       logger,
	})
	go refresher.Run(ctx)

	// Tab registry. Closed tabs land in the window's space as recently
	// closed entries.
	reg := browser.NewRegistry(browser.RegistryConfig{
		Manager:     mgr,
		Hub:         hub,
		OnNavigated: refresher.OnNavigated,
		OnClosed: func(ctx context.Context, state browser.TabState) {
			bindings, err := st.WindowBindings(ctx)
			if err != nil {
				logger.Warn("window bindings", "error", err)
				return
			}
			spaceID, ok := bindings[state.WindowID]
			if !ok {
				return
			}
			err = st.AddRecentlyClosed(ctx, spaceID, store.Entry{URL: state.URL, Title: state.Title})
			if err != nil {
				logger.Warn("record closed tab", "error", err)
			}
		},
		Logger: logger,
	})
	go func() {
		if err := reg.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("tab registry", "error", err)
		}
	}()

	// Space-to-workspace mirroring, debounced behind tab churn.
	syncer := store.NewSyncer(st, snapshotFunc(st, reg), 0, logger)
	go mirrorOnTabChange(ctx, hub, st, syncer, logger)

	// Idle tab sweep.
	if !cfg.Archive.Disabled {
		arch := archive.New(archive.Config{
			Spaces:   st,
			Tabs:     registryTabs{reg},
			Closer:   reg,
			Interval: cfg.Archive.Interval,
			Logger:   logger,
		})
		go arch.Run(ctx)
	}

	// Panel API.
	api := panel.New(panel.Config{
		Store:   st,
		Scraper: orch,
		Tabs:    reg,
		Opener:  mgr,
		Syncer:  syncer,
		Hub:     hub,
		Logger:  logger,
	})
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // the SSE stream stays open
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("panel listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("stopped")
	return nil
}

// snapshotFunc resolves a space back to its window and lists that window's
// live tabs for the workspace mirror.
func snapshotFunc(st *store.Store, reg *browser.Registry) store.SnapshotFunc {
	return func(ctx context.Context, spaceID string) ([]store.Entry, []store.WorkspaceFolder, error) {
		bindings, err := st.WindowBindings(ctx)
		if err != nil {
			return nil, nil, err
		}
		var windowID int64
		found := false
		for win, id := range bindings {
			if id == spaceID {
				windowID, found = win, true
				break
			}
		}
		if !found {
			return nil, nil, nil
		}

		var tabs []store.Entry
		for _, t := range reg.Snapshot() {
			if t.WindowID != windowID || t.URL == "" {
				continue
			}
			tabs = append(tabs, store.Entry{URL: t.URL, Title: t.Title})
		}
		return tabs, nil, nil
	}
}

// mirrorOnTabChange schedules a debounced workspace sync for the affected
// window's space whenever its tab population changes.
func mirrorOnTabChange(ctx context.Context, hub *notify.Hub, st *store.Store, syncer *store.Syncer, logger *slog.Logger) {
	ch, cancel := hub.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Type != notify.TypeTabsChanged && msg.Type != notify.TypeTabClosed {
				continue
			}
			bindings, err := st.WindowBindings(ctx)
			if err != nil {
				logger.Warn("window bindings", "error", err)
				continue
			}
			if spaceID, ok := bindings[msg.WindowID]; ok {
				syncer.Schedule(ctx, spaceID)
			}
		}
	}
}

// registryTabs adapts the registry snapshot to the archive sweep's view.
type registryTabs struct {
	reg *browser.Registry
}

func (r registryTabs) ListTabs() []archive.Tab {
	states := r.reg.Snapshot()
	out := make([]archive.Tab, 0, len(states))
	for _, s := range states {
		out = append(out, archive.Tab{
			ID:         s.ID,
			WindowID:   s.WindowID,
			URL:        s.URL,
			LastActive: s.LastActive,
		})
	}
	return out
}
