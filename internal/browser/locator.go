package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/homed/internal/scrape"
	"github.com/hazyhaar/homed/internal/service"
)

// Tab provisioning timings.
const (
	DefaultLoadTimeout = 15 * time.Second
	DefaultLoadSettle  = 2 * time.Second
)

// ErrTabLoadTimeout reports a provisioned tab that never reached the
// loaded state. The message is the user-facing hint.
type ErrTabLoadTimeout struct {
	Service service.Name
	Timeout time.Duration
}

func (e *ErrTabLoadTimeout) Error() string {
	return fmt.Sprintf("The %s tab did not finish loading within %s. Try reloading it.", e.Service, e.Timeout)
}

// Locator finds candidate tabs for a service, opening one in the
// background when none exists.
type Locator struct {
	mgr         *Manager
	settings    service.Settings
	loadTimeout time.Duration
	settle      time.Duration
	logger      *slog.Logger
}

// LocatorConfig wires a Locator.
type LocatorConfig struct {
	Manager     *Manager
	Settings    service.Settings
	LoadTimeout time.Duration
	LoadSettle  time.Duration
	Logger      *slog.Logger
}

// NewLocator creates a Locator.
func NewLocator(cfg LocatorConfig) *Locator {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	if cfg.LoadSettle <= 0 {
		cfg.LoadSettle = DefaultLoadSettle
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Locator{
		mgr:         cfg.Manager,
		settings:    cfg.Settings,
		loadTimeout: cfg.LoadTimeout,
		settle:      cfg.LoadSettle,
		logger:      cfg.Logger,
	}
}

// Locate returns every open tab whose URL matches the service, in the
// browser's enumeration order. With no match it opens the service's target
// URL in a background tab, waits for it to load, and returns that single
// candidate.
func (l *Locator) Locate(ctx context.Context, desc service.Descriptor) ([]scrape.Tab, error) {
	b := l.mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: not connected")
	}

	pages, err := b.Pages()
	if err != nil {
		return nil, fmt.Errorf("browser: list pages: %w", err)
	}

	var tabs []scrape.Tab
	for _, p := range pages {
		info, err := p.Context(ctx).Info()
		if err != nil {
			continue
		}
		if info.Type != "page" {
			continue
		}
		if desc.Matches(info.URL) {
			tabs = append(tabs, &tab{page: p, id: string(p.TargetID), url: info.URL})
		}
	}
	if len(tabs) > 0 {
		return tabs, nil
	}

	t, err := l.provision(ctx, b, desc)
	if err != nil {
		return nil, err
	}
	return []scrape.Tab{t}, nil
}

// provision opens the service page in a new background tab. The tab is
// left open afterwards; it becomes the standing candidate for later
// scrapes.
func (l *Locator) provision(ctx context.Context, b *rod.Browser, desc service.Descriptor) (*tab, error) {
	target, err := desc.TargetURL(ctx, l.settings)
	if err != nil {
		return nil, err
	}
	l.logger.Info("browser: opening service tab", "service", desc.Name, "url", target)

	var page *rod.Page
	if l.mgr.Attached() {
		// The user's browser: open behind the active tab, never steal
		// focus.
		page, err = b.Page(proto.TargetCreateTarget{URL: target, Background: true})
	} else {
		page, err = stealth.Page(b)
		if err == nil {
			err = page.Context(ctx).Navigate(target)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("browser: open %s tab: %w", desc.Name, err)
	}

	// The tab stays open on timeout; a later attempt may find it loaded.
	err = l.awaitLoad(ctx, desc.Name, func(c context.Context) error {
		return page.Context(c).WaitLoad()
	})
	if err != nil {
		return nil, err
	}

	return &tab{page: page, id: string(page.TargetID), url: target}, nil
}

// awaitLoad runs wait under the load timeout and then holds for the settle
// window. A wait that outlives the timeout maps to ErrTabLoadTimeout so the
// caller returns instead of hanging on a stuck page.
func (l *Locator) awaitLoad(ctx context.Context, svc service.Name, wait func(context.Context) error) error {
	loadCtx, cancel := context.WithTimeout(ctx, l.loadTimeout)
	defer cancel()
	if err := wait(loadCtx); err != nil {
		l.logger.Warn("browser: service tab load timeout", "service", svc, "error", err)
		return &ErrTabLoadTimeout{Service: svc, Timeout: l.loadTimeout}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(l.settle):
	}
	return nil
}
