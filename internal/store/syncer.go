package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSyncWindow is the quiet period before a scheduled snapshot is
// written.
const DefaultSyncWindow = 250 * time.Millisecond

// SnapshotFunc captures the current window contents for a space: its live
// tabs and tab group layout.
type SnapshotFunc func(ctx context.Context, spaceID string) (tabs []Entry, folders []WorkspaceFolder, err error)

// Syncer debounces snapshot persistence. Tab churn arrives in bursts
// (restores, mass closes); each Schedule restarts the window so only the
// final state is written.
type Syncer struct {
	store    *Store
	snapshot SnapshotFunc
	window   time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewSyncer creates a Syncer. A non-positive window uses the default.
func NewSyncer(store *Store, snapshot SnapshotFunc, window time.Duration, logger *slog.Logger) *Syncer {
	if window <= 0 {
		window = DefaultSyncWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:    store,
		snapshot: snapshot,
		window:   window,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

// Schedule queues a snapshot write for a space, restarting its window.
func (y *Syncer) Schedule(ctx context.Context, spaceID string) {
	y.mu.Lock()
	defer y.mu.Unlock()

	if t, ok := y.timers[spaceID]; ok {
		t.Stop()
	}
	y.timers[spaceID] = time.AfterFunc(y.window, func() {
		y.mu.Lock()
		delete(y.timers, spaceID)
		y.mu.Unlock()
		y.flush(ctx, spaceID)
	})
}

// Flush writes a space's snapshot immediately, cancelling any pending
// timer. Used by the explicit sync action.
func (y *Syncer) Flush(ctx context.Context, spaceID string) error {
	y.mu.Lock()
	if t, ok := y.timers[spaceID]; ok {
		t.Stop()
		delete(y.timers, spaceID)
	}
	y.mu.Unlock()

	tabs, folders, err := y.snapshot(ctx, spaceID)
	if err != nil {
		return err
	}
	return y.store.SyncSnapshot(ctx, spaceID, tabs, folders)
}

func (y *Syncer) flush(ctx context.Context, spaceID string) {
	if ctx.Err() != nil {
		return
	}
	if err := y.Flush(ctx, spaceID); err != nil {
		y.logger.Debug("store: debounced sync failed", "space", spaceID, "error", err)
	}
}
