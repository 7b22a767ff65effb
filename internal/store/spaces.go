package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// MaxRecentlyClosed caps the per-space recently closed list.
const MaxRecentlyClosed = 10

// GetOrCreateSpace returns the space bound to a window, creating and
// binding a fresh one when the window has none.
func (s *Store) GetOrCreateSpace(ctx context.Context, windowID int64) (Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Space
	created := false
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		spaces := map[string]Space{}
		if _, err := s.getJSON(ctx, tx, keySpaces, &spaces); err != nil {
			return err
		}
		windowMap := map[string]string{}
		if _, err := s.getJSON(ctx, tx, keyWindowMap, &windowMap); err != nil {
			return err
		}

		winKey := strconv.FormatInt(windowID, 10)
		if id, ok := windowMap[winKey]; ok {
			if sp, ok := spaces[id]; ok {
				out = Normalize(sp)
				return nil
			}
		}

		sp := Space{
			ID:               s.newSpaceID(),
			Name:             fmt.Sprintf("Space %d", len(spaces)+1),
			PinnedEntries:    []Entry{},
			PinnedFolders:    []Folder{},
			Sections:         slices.Clone(DefaultSections),
			Theme:            NewSpaceTheme,
			AutoArchiveHours: 12,
			CreatedAt:        s.now().UTC().Format(time.RFC3339),
		}
		spaces[sp.ID] = sp
		windowMap[winKey] = sp.ID

		if err := s.putJSON(ctx, tx, keySpaces, spaces); err != nil {
			return err
		}
		if err := s.putJSON(ctx, tx, keyWindowMap, windowMap); err != nil {
			return err
		}
		out = Normalize(sp)
		created = true
		return nil
	})
	if err != nil {
		return Space{}, err
	}
	if created {
		s.logger.Info("store: created space", "space", out.ID, "window", windowID)
	}
	return out, nil
}

// Space returns a space by ID.
func (s *Store) Space(ctx context.Context, spaceID string) (Space, error) {
	spaces := map[string]Space{}
	if _, err := s.getJSON(ctx, s.db, keySpaces, &spaces); err != nil {
		return Space{}, err
	}
	sp, ok := spaces[spaceID]
	if !ok {
		return Space{}, fmt.Errorf("store: space %s: %w", spaceID, ErrNotFound)
	}
	return Normalize(sp), nil
}

// WindowBindings returns the window-to-space map keyed by window ID.
func (s *Store) WindowBindings(ctx context.Context) (map[int64]string, error) {
	windowMap := map[string]string{}
	if _, err := s.getJSON(ctx, s.db, keyWindowMap, &windowMap); err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(windowMap))
	for k, v := range windowMap {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		out[id] = v
	}
	return out, nil
}

// mutateSpace runs fn over a normalized copy of one space and writes the
// result back. The whole cycle holds the writer lock and one transaction.
func (s *Store) mutateSpace(ctx context.Context, spaceID string, fn func(*Space) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runTx(ctx, func(tx *sql.Tx) error {
		spaces := map[string]Space{}
		if _, err := s.getJSON(ctx, tx, keySpaces, &spaces); err != nil {
			return err
		}
		sp, ok := spaces[spaceID]
		if !ok {
			return fmt.Errorf("store: space %s: %w", spaceID, ErrNotFound)
		}
		sp = Normalize(sp)
		if err := fn(&sp); err != nil {
			return err
		}
		spaces[spaceID] = sp
		return s.putJSON(ctx, tx, keySpaces, spaces)
	})
}

// PinTab adds a tab to the space's pinned entries. Pinning an already
// pinned URL is a no-op.
func (s *Store) PinTab(ctx context.Context, spaceID string, e Entry) error {
	if e.URL == "" {
		return fmt.Errorf("store: pin: empty url")
	}
	if e.Title == "" {
		e.Title = e.URL
	}
	return s.mutateSpace(ctx, spaceID, func(sp *Space) error {
		for _, p := range sp.PinnedEntries {
			if p.URL == e.URL {
				return nil
			}
		}
		sp.PinnedEntries = append(sp.PinnedEntries, e)
		return nil
	})
}

// UnpinByIndex removes the pinned entry at index and purges its URL from
// every folder.
func (s *Store) UnpinByIndex(ctx context.Context, spaceID string, index int) error {
	return s.mutateSpace(ctx, spaceID, func(sp *Space) error {
		if index < 0 || index >= len(sp.PinnedEntries) {
			return fmt.Errorf("store: unpin index %d out of range", index)
		}
		url := sp.PinnedEntries[index].URL
		sp.PinnedEntries = slices.Delete(sp.PinnedEntries, index, index+1)
		removeFromFolders(sp, url)
		return nil
	})
}

// UnpinByURL removes the pinned entry with the given URL and purges it from
// every folder. Unknown URLs are a no-op.
func (s *Store) UnpinByURL(ctx context.Context, spaceID, url string) error {
	return s.mutateSpace(ctx, spaceID, func(sp *Space) error {
		idx := slices.IndexFunc(sp.PinnedEntries, func(e Entry) bool { return e.URL == url })
		if idx < 0 {
			return nil
		}
		sp.PinnedEntries = slices.Delete(sp.PinnedEntries, idx, idx+1)
		removeFromFolders(sp, url)
		return nil
	})
}

func removeFromFolders(sp *Space, url string) {
	for i := range sp.PinnedFolders {
		sp.PinnedFolders[i].EntryURLs = slices.DeleteFunc(sp.PinnedFolders[i].EntryURLs,
			func(u string) bool { return u == url })
	}
}

// CreatePinnedFolder appends an empty folder.
func (s *Store) CreatePinnedFolder(ctx context.Context, spaceID, name string) error {
	if name == "" {
		return fmt.Errorf("store: folder: empty name")
	}
	return s.mutateSpace(ctx, spaceID, func(sp *Space) error {
		sp.PinnedFolders = append(sp.PinnedFolders, Folder{Name: name, EntryURLs: []string{}})
		return nil
	})
}

// DeletePinnedFolder removes the folder at index. Its entries stay pinned,
// just folderless.
func (s *Store) DeletePinnedFolder(ctx context.Context, spaceID string, index int) error {
	return s.mutateSpace(ctx, spaceID, func(sp *Space) error {
		if index < 0 || index >= len(sp.PinnedFolders) {
			return fmt.Errorf("store: folder index %d out of range", index)
		}
		sp.PinnedFolders = slices.Delete(sp.PinnedFolders, index, index+1)
		return nil
	})
}

// MoveEntryToFolder places a pinned URL into the folder at folderIndex,
// removing it from every other folder first so membership stays exclusive.
// A negative folderIndex just removes it from all folders.
func (s *Store) MoveEntryToFolder(ctx context.Context, spaceID, url string, folderIndex int) error {
	if url == "" {
		return fmt.Errorf("store: move: empty url")
	}
	return s.mutateSpace(ctx, spaceID, func(sp *Space) error {
		removeFromFolders(sp, url)
		if folderIndex < 0 {
			return nil
		}
		if folderIndex >= len(sp.PinnedFolders) {
			return fmt.Errorf("store: folder index %d out of range", folderIndex)
		}
		f := &sp.PinnedFolders[folderIndex]
		if !slices.Contains(f.EntryURLs, url) {
			f.EntryURLs = append(f.EntryURLs, url)
		}
		return nil
	})
}

// SetFolderCollapsed toggles a pinned folder's collapsed flag.
func (s *Store) SetFolderCollapsed(ctx context.Context, spaceID string, index int, collapsed bool) error {
	return s.mutateSpace(ctx, spaceID, func(sp *Space) error {
		if index < 0 || index >= len(sp.PinnedFolders) {
			return fmt.Errorf("store: folder index %d out of range", index)
		}
		sp.PinnedFolders[index].Collapsed = collapsed
		return nil
	})
}

// UpdateSpaceMeta sets the user-editable space fields and mirrors them into
// the space's saved workspace when one exists.
func (s *Store) UpdateSpaceMeta(ctx context.Context, spaceID, name, emoji string, sections []string, theme Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runTx(ctx, func(tx *sql.Tx) error {
		spaces := map[string]Space{}
		if _, err := s.getJSON(ctx, tx, keySpaces, &spaces); err != nil {
			return err
		}
		sp, ok := spaces[spaceID]
		if !ok {
			return fmt.Errorf("store: space %s: %w", spaceID, ErrNotFound)
		}
		sp = Normalize(sp)
		if name != "" {
			sp.Name = name
		}
		sp.Emoji = clampRunes(emoji, 2)
		if sections != nil {
			sp.Sections = sections
		}
		if theme != (Theme{}) {
			sp.Theme = theme
		}
		spaces[spaceID] = sp
		if err := s.putJSON(ctx, tx, keySpaces, spaces); err != nil {
			return err
		}

		workspaces := []Workspace{}
		if _, err := s.getJSON(ctx, tx, keyWorkspaces, &workspaces); err != nil {
			return err
		}
		idx := slices.IndexFunc(workspaces, func(w Workspace) bool { return w.ID == spaceID })
		if idx < 0 {
			return nil
		}
		if name != "" {
			workspaces[idx].Name = name
		}
		workspaces[idx].Emoji = clampRunes(emoji, 2)
		if sections != nil {
			workspaces[idx].Sections = sections
		}
		if theme != (Theme{}) {
			workspaces[idx].Theme = theme
		}
		return s.putJSON(ctx, tx, keyWorkspaces, workspaces)
	})
}

// SetAutoArchiveHours sets the idle threshold; anything but 24 snaps to 12.
func (s *Store) SetAutoArchiveHours(ctx context.Context, spaceID string, hours int) error {
	return s.mutateSpace(ctx, spaceID, func(sp *Space) error {
		if hours == 24 {
			sp.AutoArchiveHours = 24
		} else {
			sp.AutoArchiveHours = 12
		}
		return nil
	})
}

// AddRecentlyClosed records a closed tab: pinned URLs are ignored,
// duplicates move to the front, the list is capped.
func (s *Store) AddRecentlyClosed(ctx context.Context, spaceID string, e Entry) error {
	if e.URL == "" {
		return nil
	}
	if e.Title == "" {
		e.Title = e.URL
	}
	return s.mutateSpace(ctx, spaceID, func(sp *Space) error {
		for _, p := range sp.PinnedEntries {
			if p.URL == e.URL {
				return nil
			}
		}
		sp.RecentlyClosed = slices.DeleteFunc(sp.RecentlyClosed,
			func(c ClosedEntry) bool { return c.URL == e.URL })
		sp.RecentlyClosed = append([]ClosedEntry{{Entry: e, ClosedAt: s.now().UnixMilli()}}, sp.RecentlyClosed...)
		if len(sp.RecentlyClosed) > MaxRecentlyClosed {
			sp.RecentlyClosed = sp.RecentlyClosed[:MaxRecentlyClosed]
		}
		return nil
	})
}

// RemoveRecentlyClosed drops one URL from the list, typically after the
// user reopened it.
func (s *Store) RemoveRecentlyClosed(ctx context.Context, spaceID, url string) error {
	return s.mutateSpace(ctx, spaceID, func(sp *Space) error {
		sp.RecentlyClosed = slices.DeleteFunc(sp.RecentlyClosed,
			func(c ClosedEntry) bool { return c.URL == url })
		return nil
	})
}

// ClearRecentlyClosed empties the list.
func (s *Store) ClearRecentlyClosed(ctx context.Context, spaceID string) error {
	return s.mutateSpace(ctx, spaceID, func(sp *Space) error {
		sp.RecentlyClosed = []ClosedEntry{}
		return nil
	})
}

// SetGroupCollapsed persists a tab group's collapsed flag.
func (s *Store) SetGroupCollapsed(ctx context.Context, groupID string, collapsed bool) error {
	return s.putJSON(ctx, s.db, groupCollapsedPrefix+groupID, collapsed)
}

// GroupCollapsed reads a tab group's collapsed flag; absent means expanded.
func (s *Store) GroupCollapsed(ctx context.Context, groupID string) (bool, error) {
	var collapsed bool
	if _, err := s.getJSON(ctx, s.db, groupCollapsedPrefix+groupID, &collapsed); err != nil {
		return false, err
	}
	return collapsed, nil
}
