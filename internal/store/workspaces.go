package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// Workspaces lists the saved workspaces in save order. Every row passes
// through NormalizeWorkspace so hand-edited or stale storage reads clean.
func (s *Store) Workspaces(ctx context.Context) ([]Workspace, error) {
	workspaces := []Workspace{}
	if _, err := s.getJSON(ctx, s.db, keyWorkspaces, &workspaces); err != nil {
		return nil, err
	}
	for i, w := range workspaces {
		workspaces[i] = NormalizeWorkspace(w)
	}
	return workspaces, nil
}

// Workspace returns one saved workspace by ID.
func (s *Store) Workspace(ctx context.Context, id string) (Workspace, error) {
	workspaces, err := s.Workspaces(ctx)
	if err != nil {
		return Workspace{}, err
	}
	idx := slices.IndexFunc(workspaces, func(w Workspace) bool { return w.ID == id })
	if idx < 0 {
		return Workspace{}, fmt.Errorf("store: workspace %s: %w", id, ErrNotFound)
	}
	return workspaces[idx], nil
}

// LastActiveWorkspaceID returns the most recently used workspace, or empty.
func (s *Store) LastActiveWorkspaceID(ctx context.Context) (string, error) {
	var id string
	if _, err := s.getJSON(ctx, s.db, keyLastWorkspace, &id); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWorkspace snapshots a space and its window into a new saved
// workspace. Tabs already pinned in the space are excluded from the live
// tab list, they travel as pinnedTabs.
func (s *Store) CreateWorkspace(ctx context.Context, spaceID, name, emoji string, tabs []Entry, folders []WorkspaceFolder) (Workspace, error) {
	if name == "" {
		return Workspace{}, fmt.Errorf("store: workspace: empty name")
	}

	sp, err := s.Space(ctx, spaceID)
	if err != nil {
		return Workspace{}, err
	}

	ws := Workspace{
		ID:         s.newWorkspaceID(),
		Name:       name,
		Emoji:      clampRunes(emoji, 4),
		PinnedTabs: slices.Clone(sp.PinnedEntries),
		Tabs:       excludePinned(tabs, sp.PinnedEntries),
		Folders:    folders,
		Sections:   sp.Sections,
		Theme:      sp.Theme,
		CreatedAt:  s.now().UTC().Format(time.RFC3339),
		Saved:      true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.runTx(ctx, func(tx *sql.Tx) error {
		workspaces := []Workspace{}
		if _, err := s.getJSON(ctx, tx, keyWorkspaces, &workspaces); err != nil {
			return err
		}
		workspaces = append(workspaces, ws)
		return s.putJSON(ctx, tx, keyWorkspaces, workspaces)
	})
	if err != nil {
		return Workspace{}, err
	}
	s.logger.Info("store: saved workspace", "workspace", ws.ID, "name", name)
	return ws, nil
}

// SyncSnapshot pushes the current window contents into the space and, when
// the space has a saved workspace of the same ID, into that workspace too.
// Sync is one-way, live state overwrites the snapshot.
func (s *Store) SyncSnapshot(ctx context.Context, spaceID string, tabs []Entry, folders []WorkspaceFolder) error {
	sp, err := s.Space(ctx, spaceID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runTx(ctx, func(tx *sql.Tx) error {
		workspaces := []Workspace{}
		if _, err := s.getJSON(ctx, tx, keyWorkspaces, &workspaces); err != nil {
			return err
		}
		idx := slices.IndexFunc(workspaces, func(w Workspace) bool { return w.ID == spaceID })
		if idx < 0 {
			return nil
		}

		ws := workspaces[idx]
		ws.Name = sp.Name
		ws.Emoji = sp.Emoji
		ws.PinnedTabs = slices.Clone(sp.PinnedEntries)
		ws.Tabs = excludePinned(tabs, sp.PinnedEntries)
		ws.Folders = folders
		ws.LastSyncedAt = s.now().UTC().Format(time.RFC3339)
		workspaces[idx] = ws

		if err := s.putJSON(ctx, tx, keyWorkspaces, workspaces); err != nil {
			return err
		}
		return s.putJSON(ctx, tx, keyLastWorkspace, spaceID)
	})
}

// AdoptWorkspace binds a window to a workspace's space, creating the space
// from the snapshot when it does not exist yet. Used both by switching
// (keep the window's tabs) and restoring (caller reopens the snapshot's
// tabs around this call).
func (s *Store) AdoptWorkspace(ctx context.Context, wsID string, windowID int64) (Space, error) {
	ws, err := s.Workspace(ctx, wsID)
	if err != nil {
		return Space{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out Space
	err = s.runTx(ctx, func(tx *sql.Tx) error {
		spaces := map[string]Space{}
		if _, err := s.getJSON(ctx, tx, keySpaces, &spaces); err != nil {
			return err
		}
		windowMap := map[string]string{}
		if _, err := s.getJSON(ctx, tx, keyWindowMap, &windowMap); err != nil {
			return err
		}

		sp, ok := spaces[ws.ID]
		if !ok {
			sp = Space{
				ID:               ws.ID,
				Name:             ws.Name,
				Emoji:            ws.Emoji,
				PinnedEntries:    slices.Clone(ws.PinnedTabs),
				PinnedFolders:    []Folder{},
				Sections:         ws.Sections,
				Theme:            ws.Theme,
				AutoArchiveHours: 12,
				Saved:            true,
				CreatedAt:        ws.CreatedAt,
			}
		} else {
			sp.Name = ws.Name
			sp.Emoji = ws.Emoji
			if ws.Sections != nil {
				sp.Sections = ws.Sections
			}
		}
		spaces[ws.ID] = sp
		windowMap[strconv.FormatInt(windowID, 10)] = ws.ID

		if err := s.putJSON(ctx, tx, keySpaces, spaces); err != nil {
			return err
		}
		if err := s.putJSON(ctx, tx, keyWindowMap, windowMap); err != nil {
			return err
		}
		if err := s.putJSON(ctx, tx, keyLastWorkspace, ws.ID); err != nil {
			return err
		}
		out = Normalize(sp)
		return nil
	})
	if err != nil {
		return Space{}, err
	}
	return out, nil
}

// DeleteSpace removes a space, its saved workspace, and every window
// binding pointing at it. The four keys move in one transaction so a
// failure never strands a binding to a deleted space.
func (s *Store) DeleteSpace(ctx context.Context, spaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.runTx(ctx, func(tx *sql.Tx) error {
		workspaces := []Workspace{}
		if _, err := s.getJSON(ctx, tx, keyWorkspaces, &workspaces); err != nil {
			return err
		}
		workspaces = slices.DeleteFunc(workspaces, func(w Workspace) bool { return w.ID == spaceID })
		if err := s.putJSON(ctx, tx, keyWorkspaces, workspaces); err != nil {
			return err
		}

		spaces := map[string]Space{}
		if _, err := s.getJSON(ctx, tx, keySpaces, &spaces); err != nil {
			return err
		}
		delete(spaces, spaceID)
		if err := s.putJSON(ctx, tx, keySpaces, spaces); err != nil {
			return err
		}

		windowMap := map[string]string{}
		if _, err := s.getJSON(ctx, tx, keyWindowMap, &windowMap); err != nil {
			return err
		}
		for win, id := range windowMap {
			if id == spaceID {
				delete(windowMap, win)
			}
		}
		if err := s.putJSON(ctx, tx, keyWindowMap, windowMap); err != nil {
			return err
		}

		var last string
		if _, err := s.getJSON(ctx, tx, keyLastWorkspace, &last); err != nil {
			return err
		}
		if last == spaceID {
			if err := s.deleteKey(ctx, tx, keyLastWorkspace); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("store: deleted space", "space", spaceID)
	return nil
}

func excludePinned(tabs, pinned []Entry) []Entry {
	pinnedURLs := make(map[string]bool, len(pinned))
	for _, p := range pinned {
		pinnedURLs[p.URL] = true
	}
	out := make([]Entry, 0, len(tabs))
	for _, t := range tabs {
		if t.URL == "" || pinnedURLs[t.URL] {
			continue
		}
		out = append(out, t)
	}
	return out
}
