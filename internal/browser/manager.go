// Package browser attaches to the user's Chrome over the DevTools protocol
// and exposes what the scrape pipeline needs from it: tab location and
// provisioning, extractor injection, request/response messaging, a live tab
// registry, and the session cookie jar.
//
// Attaching to a running browser (RemoteURL) is the normal mode; launching
// a private instance is the fallback for development and tests.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of the user's running
	// Chrome. Empty launches a private instance instead.
	RemoteURL string

	// Headless applies only to a launched instance. A browser the user
	// reads mail in is never headless.
	Headless bool

	// RecycleInterval bounds the lifetime of a launched instance.
	// Ignored when attached to a remote browser. Default: 4h.
	RecycleInterval time.Duration

	// MemoryLimit in bytes for a launched instance; exceeding it
	// triggers a recycle. Default: 1GB.
	MemoryLimit int64

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the connection to Chrome.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	startAt time.Time
	closed  bool
}

// NewManager creates a Manager. Call Start to connect.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start connects to the remote browser or launches a private one. For a
// launched instance it also starts the recycle monitor.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}

	b, err := m.connect()
	if err != nil {
		return nil, err
	}
	m.browser = b
	m.startAt = time.Now()

	if m.cfg.RemoteURL == "" {
		go m.monitorLoop(ctx)
	}
	return b, nil
}

// Browser returns the current Rod handle. Thread-safe; nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Attached reports whether the manager rides a remote browser. Attached
// mode never kills Chrome; it belongs to the user.
func (m *Manager) Attached() bool { return m.cfg.RemoteURL != "" }

// Recycle kills a launched Chrome and starts a fresh one. No-op in
// attached mode.
func (m *Manager) Recycle(ctx context.Context) error {
	if m.Attached() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("browser: manager is closed")
	}

	log := m.cfg.Logger
	log.Info("browser: recycling", "uptime", time.Since(m.startAt))

	m.cleanup()
	b, err := m.connect()
	if err != nil {
		return fmt.Errorf("browser: relaunch: %w", err)
	}
	m.browser = b
	m.startAt = time.Now()
	return nil
}

// Close disconnects. A launched instance is killed; a remote browser is
// left running.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.Attached() && m.browser != nil {
		m.browser = nil
		return nil
	}
	m.cleanup()
	return nil
}

func (m *Manager) connect() (*rod.Browser, error) {
	log := m.cfg.Logger
	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: attaching to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(m.cfg.Headless)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched private chrome", "url", wsURL, "headless", m.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

func (m *Manager) cleanup() {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
}

func (m *Manager) monitorLoop(ctx context.Context) {
	log := m.cfg.Logger
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			if m.closed || m.browser == nil {
				m.mu.RUnlock()
				return
			}
			startAt := m.startAt
			b := m.browser
			m.mu.RUnlock()

			if time.Since(startAt) > m.cfg.RecycleInterval {
				log.Info("browser: recycle interval reached")
				if err := m.Recycle(ctx); err != nil {
					log.Error("browser: recycle failed", "error", err)
				}
				continue
			}

			used, err := jsHeapUsage(b)
			if err != nil {
				log.Debug("browser: heap check failed", "error", err)
				continue
			}
			if used > m.cfg.MemoryLimit {
				log.Info("browser: memory limit exceeded", "used", used, "limit", m.cfg.MemoryLimit)
				if err := m.Recycle(ctx); err != nil {
					log.Error("browser: recycle failed", "error", err)
				}
			}
		}
	}
}

// jsHeapUsage samples the first page's JS heap as a proxy for overall
// browser memory.
func jsHeapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil || len(pages) == 0 {
		return 0, fmt.Errorf("browser: no pages for heap check")
	}
	res, err := pages[0].Eval(`() => {
		if (performance.memory) {
			return performance.memory.usedJSHeapSize;
		}
		return 0;
	}`)
	if err != nil {
		return 0, err
	}
	return int64(res.Value.Int()), nil
}

// OpenTab opens url in a new background tab.
func (m *Manager) OpenTab(ctx context.Context, url string) error {
	b := m.Browser()
	if b == nil {
		return fmt.Errorf("browser: not connected")
	}
	_, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: url, Background: true})
	if err != nil {
		return fmt.Errorf("browser: open tab %s: %w", url, err)
	}
	return nil
}

// Cookies returns the browser's cookies applicable to rawURL as HTTP
// cookies. This is how the GitHub fetch path rides the user's login.
func (m *Manager) Cookies(ctx context.Context, rawURL string) ([]*http.Cookie, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: not connected")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("browser: parse cookie url: %w", err)
	}

	all, err := b.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("browser: get cookies: %w", err)
	}

	host := u.Hostname()
	var out []*http.Cookie
	for _, c := range all {
		if !domainMatches(host, c.Domain) {
			continue
		}
		if c.Secure && u.Scheme != "https" {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out, nil
}

// domainMatches implements host matching against a cookie domain, where a
// leading dot means the domain and its subdomains.
func domainMatches(host, domain string) bool {
	if domain == "" {
		return false
	}
	if strings.HasPrefix(domain, ".") {
		bare := domain[1:]
		return host == bare || strings.HasSuffix(host, domain)
	}
	return host == domain
}
