package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/homed/internal/dbopen"
	"github.com/hazyhaar/homed/internal/store"
)

func TestCreateWorkspaceSnapshotsSpace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sp, _ := s.GetOrCreateSpace(ctx, 1)
	s.PinTab(ctx, sp.ID, store.Entry{URL: "https://pinned.test/", Title: "P"})

	tabs := []store.Entry{
		{URL: "https://pinned.test/", Title: "P"},
		{URL: "https://live.test/", Title: "L"},
	}
	ws, err := s.CreateWorkspace(ctx, sp.ID, "Research", "🔬🔬🔬🔬🔬", tabs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ws.ID, "saved_") {
		t.Fatalf("workspace ID = %q", ws.ID)
	}
	if ws.Emoji != "🔬🔬🔬🔬" {
		t.Fatalf("emoji = %q, want clamp to four", ws.Emoji)
	}
	// Pinned tabs travel separately; the live list excludes them.
	if len(ws.PinnedTabs) != 1 || len(ws.Tabs) != 1 || ws.Tabs[0].URL != "https://live.test/" {
		t.Fatalf("pinnedTabs = %+v, tabs = %+v", ws.PinnedTabs, ws.Tabs)
	}
	if !ws.Saved {
		t.Fatal("workspace not marked saved")
	}

	list, err := s.Workspaces(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("workspaces = %+v, %v", list, err)
	}
}

func TestSyncSnapshotUpdatesSavedWorkspace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sp, _ := s.GetOrCreateSpace(ctx, 1)

	// A space with no saved workspace syncs to nowhere without error.
	if err := s.SyncSnapshot(ctx, sp.ID, []store.Entry{{URL: "https://x.test/"}}, nil); err != nil {
		t.Fatal(err)
	}

	// Adopt gives the window a space whose ID matches a workspace.
	ws, _ := s.CreateWorkspace(ctx, sp.ID, "Research", "", nil, nil)
	if _, err := s.AdoptWorkspace(ctx, ws.ID, 1); err != nil {
		t.Fatal(err)
	}

	tabs := []store.Entry{{URL: "https://fresh.test/", Title: "F"}}
	folders := []store.WorkspaceFolder{{Name: "grp", TabIndices: []int{0}}}
	if err := s.SyncSnapshot(ctx, ws.ID, tabs, folders); err != nil {
		t.Fatal(err)
	}

	got, err := s.Workspace(ctx, ws.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tabs) != 1 || got.Tabs[0].URL != "https://fresh.test/" {
		t.Fatalf("tabs = %+v", got.Tabs)
	}
	if len(got.Folders) != 1 || got.Folders[0].Name != "grp" {
		t.Fatalf("folders = %+v", got.Folders)
	}
	if got.LastSyncedAt == "" {
		t.Fatal("lastSyncedAt not stamped")
	}
	if _, err := time.Parse(time.RFC3339, got.LastSyncedAt); err != nil {
		t.Fatalf("lastSyncedAt = %q: %v", got.LastSyncedAt, err)
	}

	last, _ := s.LastActiveWorkspaceID(ctx)
	if last != ws.ID {
		t.Fatalf("lastActive = %q, want %q", last, ws.ID)
	}
}

func TestAdoptWorkspaceCreatesSpace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base, _ := s.GetOrCreateSpace(ctx, 1)
	s.PinTab(ctx, base.ID, store.Entry{URL: "https://pinned.test/"})
	ws, _ := s.CreateWorkspace(ctx, base.ID, "Ops", "⚙️", nil, nil)

	sp, err := s.AdoptWorkspace(ctx, ws.ID, 9)
	if err != nil {
		t.Fatal(err)
	}
	if sp.ID != ws.ID {
		t.Fatalf("space ID = %q, want workspace ID %q", sp.ID, ws.ID)
	}
	if !sp.Saved || sp.Name != "Ops" {
		t.Fatalf("space = %+v", sp)
	}
	if len(sp.PinnedEntries) != 1 || sp.PinnedEntries[0].URL != "https://pinned.test/" {
		t.Fatalf("pinned = %+v", sp.PinnedEntries)
	}

	// The window now resolves to the adopted space.
	again, _ := s.GetOrCreateSpace(ctx, 9)
	if again.ID != ws.ID {
		t.Fatalf("window resolves to %q, want %q", again.ID, ws.ID)
	}
}

func TestDeleteSpaceCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base, _ := s.GetOrCreateSpace(ctx, 1)
	ws, _ := s.CreateWorkspace(ctx, base.ID, "Temp", "", nil, nil)
	if _, err := s.AdoptWorkspace(ctx, ws.ID, 1); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteSpace(ctx, ws.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Space(ctx, ws.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("space err = %v, want ErrNotFound", err)
	}
	if _, err := s.Workspace(ctx, ws.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("workspace err = %v, want ErrNotFound", err)
	}
	bindings, _ := s.WindowBindings(ctx)
	if _, ok := bindings[1]; ok {
		t.Fatal("window binding survived deletion")
	}
	last, _ := s.LastActiveWorkspaceID(ctx)
	if last != "" {
		t.Fatalf("lastActive = %q after delete", last)
	}

	// The window gets a fresh space on next use.
	fresh, err := s.GetOrCreateSpace(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.ID == ws.ID {
		t.Fatal("deleted space came back")
	}
}

// WHAT: workspace reads repair rows that were written by older builds or
// edited by hand, the same way space reads do.
func TestWorkspaceReadsAreNormalized(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema()))
	s := store.New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	raw := `[{"id":"saved_1","name":"Old","emoji":"  abcdefgh  "}]`
	if _, err := db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES ('workspaces', ?, 0)`, raw); err != nil {
		t.Fatal(err)
	}

	got, err := s.Workspace(ctx, "saved_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Emoji != "ab" {
		t.Fatalf("emoji = %q, want trim and clamp to two", got.Emoji)
	}
	if got.PinnedTabs == nil || got.Tabs == nil || got.Folders == nil {
		t.Fatalf("nil collections survived: %+v", got)
	}
	if len(got.Sections) != 3 {
		t.Fatalf("sections = %v, want defaults", got.Sections)
	}
	if got.Theme != store.NewSpaceTheme {
		t.Fatalf("theme = %+v, want new-space palette", got.Theme)
	}

	list, err := s.Workspaces(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Emoji != "ab" {
		t.Fatalf("list = %+v", list)
	}
}

// WHAT: a multi-key mutation that fails partway leaves every key as it was.
// The window map is corrupted so DeleteSpace errors after it has already
// rewritten the workspace and space keys inside its transaction.
func TestDeleteSpaceRollsBackOnFailure(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema()))
	s := store.New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	base, _ := s.GetOrCreateSpace(ctx, 1)
	ws, err := s.CreateWorkspace(ctx, base.ID, "Temp", "", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AdoptWorkspace(ctx, ws.ID, 1); err != nil {
		t.Fatal(err)
	}

	if _, err := db.ExecContext(ctx,
		`UPDATE kv SET value = 'not json' WHERE key = 'windowIdToSpaceId'`); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteSpace(ctx, ws.ID); err == nil {
		t.Fatal("delete over corrupt window map did not error")
	}

	// The earlier writes in the cycle rolled back with it.
	if _, err := s.Workspace(ctx, ws.ID); err != nil {
		t.Fatalf("workspace gone after failed delete: %v", err)
	}
	if _, err := s.Space(ctx, ws.ID); err != nil {
		t.Fatalf("space gone after failed delete: %v", err)
	}
}

func TestNormalizeMigratesLegacyFolders(t *testing.T) {
	sp := store.Normalize(store.Space{
		ID: "space_1",
		PinnedEntries: []store.Entry{
			{URL: "https://a.test/"},
			{URL: "https://b.test/"},
			{URL: "https://c.test/"},
		},
		PinnedFolders: []store.Folder{
			{Name: "old", EntryIndices: []int{0, 2, 99}},
		},
	})

	f := sp.PinnedFolders[0]
	if f.EntryIndices != nil {
		t.Fatal("legacy indices survived migration")
	}
	want := []string{"https://a.test/", "https://c.test/"}
	if len(f.EntryURLs) != len(want) || f.EntryURLs[0] != want[0] || f.EntryURLs[1] != want[1] {
		t.Fatalf("entryUrls = %v, want %v", f.EntryURLs, want)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	sp := store.Normalize(store.Space{ID: "space_1", Emoji: "  🤖🦊🦉  ", AutoArchiveHours: 99})
	if sp.Name != "Unnamed" {
		t.Fatalf("name = %q", sp.Name)
	}
	if sp.Emoji != "🤖🦊" {
		t.Fatalf("emoji = %q, want clamp to two", sp.Emoji)
	}
	if len(sp.Sections) != 3 {
		t.Fatalf("sections = %v", sp.Sections)
	}
	if sp.Theme != store.DefaultTheme {
		t.Fatalf("theme = %+v", sp.Theme)
	}
	if sp.AutoArchiveHours != 12 {
		t.Fatalf("autoArchiveHours = %d, want snap to 12", sp.AutoArchiveHours)
	}

	keep := store.Normalize(store.Space{ID: "space_2", AutoArchiveHours: 24})
	if keep.AutoArchiveHours != 24 {
		t.Fatalf("autoArchiveHours = %d, want 24 kept", keep.AutoArchiveHours)
	}
}

func TestSyncerDebounces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base, _ := s.GetOrCreateSpace(ctx, 1)
	ws, _ := s.CreateWorkspace(ctx, base.ID, "Live", "", nil, nil)
	if _, err := s.AdoptWorkspace(ctx, ws.ID, 1); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	syncer := store.NewSyncer(s, func(ctx context.Context, spaceID string) ([]store.Entry, []store.WorkspaceFolder, error) {
		calls.Add(1)
		return []store.Entry{{URL: "https://final.test/"}}, nil, nil
	}, 20*time.Millisecond, nil)

	// A burst of schedules collapses into one snapshot.
	for i := 0; i < 5; i++ {
		syncer.Schedule(ctx, ws.ID)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// Allow a straggler window to prove no further flushes arrive.
	time.Sleep(50 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("snapshot calls = %d, want 1", n)
	}

	got, _ := s.Workspace(ctx, ws.ID)
	if len(got.Tabs) != 1 || got.Tabs[0].URL != "https://final.test/" {
		t.Fatalf("tabs = %+v", got.Tabs)
	}
}
