package archive_test

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/homed/internal/archive"
	"github.com/hazyhaar/homed/internal/dbopen"
	"github.com/hazyhaar/homed/internal/store"
)

type fakeTabs struct{ tabs []archive.Tab }

func (f *fakeTabs) ListTabs() []archive.Tab { return f.tabs }

type fakeCloser struct{ closed []string }

func (f *fakeCloser) CloseTab(ctx context.Context, id string) error {
	f.closed = append(f.closed, id)
	return nil
}

// WHAT: the sweep closes tabs idle past the space threshold and spares
// fresh, pinned, foldered, and browser-internal tabs.
func TestSweep(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema()))
	s := store.New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	sp, err := s.GetOrCreateSpace(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PinTab(ctx, sp.ID, store.Entry{URL: "https://pinned.test/"}); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	tabs := &fakeTabs{tabs: []archive.Tab{
		{ID: "stale", WindowID: 1, URL: "https://old.test/", LastActive: now.Add(-13 * time.Hour)},
		{ID: "fresh", WindowID: 1, URL: "https://new.test/", LastActive: now.Add(-1 * time.Hour)},
		{ID: "pinned", WindowID: 1, URL: "https://pinned.test/", LastActive: now.Add(-20 * time.Hour)},
		{ID: "internal", WindowID: 1, URL: "chrome://settings", LastActive: now.Add(-48 * time.Hour)},
		{ID: "elsewhere", WindowID: 2, URL: "https://other.test/", LastActive: now.Add(-48 * time.Hour)},
	}}
	closer := &fakeCloser{}

	a := archive.New(archive.Config{
		Spaces: s,
		Tabs:   tabs,
		Closer: closer,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if n := a.Sweep(ctx); n != 1 {
		t.Fatalf("Sweep closed %d tabs, want 1 (closed: %v)", n, closer.closed)
	}
	if !slices.Equal(closer.closed, []string{"stale"}) {
		t.Fatalf("closed = %v, want [stale]", closer.closed)
	}
}

// WHAT: a 24-hour space keeps tabs a 12-hour space would close.
func TestSweepRespectsSpaceThreshold(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema()))
	s := store.New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	sp, _ := s.GetOrCreateSpace(ctx, 1)
	if err := s.SetAutoArchiveHours(ctx, sp.ID, 24); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	tabs := &fakeTabs{tabs: []archive.Tab{
		{ID: "mid", WindowID: 1, URL: "https://mid.test/", LastActive: now.Add(-16 * time.Hour)},
		{ID: "ancient", WindowID: 1, URL: "https://ancient.test/", LastActive: now.Add(-30 * time.Hour)},
	}}
	closer := &fakeCloser{}

	a := archive.New(archive.Config{
		Spaces: s,
		Tabs:   tabs,
		Closer: closer,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	a.Sweep(ctx)
	if !slices.Equal(closer.closed, []string{"ancient"}) {
		t.Fatalf("closed = %v, want [ancient]", closer.closed)
	}
}

func TestSweepSparesFolderedURLs(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema()))
	s := store.New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	sp, _ := s.GetOrCreateSpace(ctx, 1)
	s.PinTab(ctx, sp.ID, store.Entry{URL: "https://work.test/"})
	s.CreatePinnedFolder(ctx, sp.ID, "work")
	s.MoveEntryToFolder(ctx, sp.ID, "https://work.test/", 0)

	tabs := &fakeTabs{tabs: []archive.Tab{
		{ID: "foldered", WindowID: 1, URL: "https://work.test/", LastActive: time.Now().Add(-40 * time.Hour)},
	}}
	closer := &fakeCloser{}

	a := archive.New(archive.Config{
		Spaces: s,
		Tabs:   tabs,
		Closer: closer,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if n := a.Sweep(ctx); n != 0 {
		t.Fatalf("Sweep closed %d tabs, want 0", n)
	}
}
