package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hazyhaar/homed/internal/extractor"
	"github.com/hazyhaar/homed/internal/scrape"
	"github.com/hazyhaar/homed/internal/service"
)

// Liveness timings. The probe is cheap; a page that cannot answer within a
// second has lost its execution context and needs reinjection.
const (
	DefaultProbeTimeout = time.Second
	DefaultInjectSettle = 200 * time.Millisecond
)

// Guard keeps the extractor program alive in candidate tabs. Navigation
// wipes a page's execution context, so presence is probed before every
// scrape and the program re-evaluated on a miss.
type Guard struct {
	probeTimeout time.Duration
	settle       time.Duration
	logger       *slog.Logger
}

// GuardConfig wires a Guard.
type GuardConfig struct {
	ProbeTimeout time.Duration
	InjectSettle time.Duration
	Logger       *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.InjectSettle <= 0 {
		cfg.InjectSettle = DefaultInjectSettle
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Guard{
		probeTimeout: cfg.ProbeTimeout,
		settle:       cfg.InjectSettle,
		logger:       cfg.Logger,
	}
}

// Ensure probes for the service's handler and injects the program when the
// probe misses. Injection is idempotent; racing scrapes at worst evaluate
// the program twice.
func (g *Guard) Ensure(ctx context.Context, st scrape.Tab, ex extractor.Extractor) error {
	t, err := unwrap(st)
	if err != nil {
		return err
	}
	desc, ok := service.Lookup(ex.Service())
	if !ok {
		return fmt.Errorf("browser: unknown service %q", ex.Service())
	}

	if g.alive(ctx, t, desc.ScrapeName) {
		return nil
	}
	g.logger.Debug("browser: injecting extractor", "service", ex.Service(), "tab", t.id)

	if _, err := t.page.Context(ctx).Eval(wrapProgram(ex.Program())); err != nil {
		return fmt.Errorf("browser: inject %s: %w", ex.Service(), err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(g.settle):
	}

	if !g.alive(ctx, t, desc.ScrapeName) {
		return fmt.Errorf("browser: %s handler absent after injection", ex.Service())
	}
	return nil
}

// alive sends PING and checks the handler roster for the scrape name.
func (g *Guard) alive(ctx context.Context, t *tab, scrapeName string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
	defer cancel()

	raw, err := dispatch(probeCtx, t.page, `{"type":"PING"}`)
	if err != nil {
		return false
	}
	var pong struct {
		Services []string `json:"services"`
	}
	if err := json.Unmarshal(raw, &pong); err != nil {
		return false
	}
	return slices.Contains(pong.Services, scrapeName)
}

// wrapProgram embeds a program in a function body so the page evaluates it
// as a statement.
func wrapProgram(program string) string {
	return "() => {\n" + program + "\n}"
}
