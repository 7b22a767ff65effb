package panel

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/homed/internal/store"
)

func (s *Server) workspaceRoutes(r chi.Router) {
	r.Route("/api/workspaces", func(r chi.Router) {
		r.Get("/", s.handleListWorkspaces)
		r.Post("/", s.handleCreateWorkspace)
		r.Get("/last", s.handleLastWorkspace)
		r.Get("/{workspaceID}", s.handleGetWorkspace)
		r.Delete("/{workspaceID}", s.handleDeleteWorkspace)
		r.Post("/{workspaceID}/switch", s.handleSwitchWorkspace)
		r.Post("/{workspaceID}/restore", s.handleRestoreWorkspace)
	})
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := s.store.Workspaces(r.Context())
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, workspaces)
}

func (s *Server) handleLastWorkspace(w http.ResponseWriter, r *http.Request) {
	id, err := s.store.LastActiveWorkspaceID(r.Context())
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]string{"lastActiveWorkspaceId": id})
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.store.Workspace(r.Context(), chi.URLParam(r, "workspaceID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, ws)
}

// handleCreateWorkspace saves the window's current tabs as a named
// workspace bound to the window's space.
func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpaceID  string `json:"spaceId"`
		WindowID int64  `json:"windowId"`
		Name     string `json:"name"`
		Emoji    string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if req.SpaceID == "" {
		writeJSON(w, 400, map[string]string{"error": "spaceId is required"})
		return
	}

	tabs := s.windowTabs(req.WindowID)
	ws, err := s.store.CreateWorkspace(r.Context(), req.SpaceID, req.Name, req.Emoji, tabs, nil)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 201, ws)
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	// Workspace and space share an ID once saved; deleting tears down both
	// plus the window bindings.
	if err := s.store.DeleteSpace(r.Context(), chi.URLParam(r, "workspaceID")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "deleted"})
}

// handleSwitchWorkspace points a window at a workspace's space, creating
// the space from the workspace snapshot when it does not exist yet.
func (s *Server) handleSwitchWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WindowID int64 `json:"windowId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	sp, err := s.store.AdoptWorkspace(r.Context(), chi.URLParam(r, "workspaceID"), req.WindowID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, sp)
}

// handleRestoreWorkspace switches and then reopens the workspace's saved
// tabs. Tab open failures are logged, not fatal; the switch already
// happened.
func (s *Server) handleRestoreWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WindowID int64 `json:"windowId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	id := chi.URLParam(r, "workspaceID")

	ws, err := s.store.Workspace(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	sp, err := s.store.AdoptWorkspace(r.Context(), id, req.WindowID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	opened := 0
	for _, e := range append(append([]store.Entry{}, ws.PinnedTabs...), ws.Tabs...) {
		if e.URL == "" {
			continue
		}
		if err := s.opener.OpenTab(r.Context(), e.URL); err != nil {
			s.logger.Warn("panel: restore open tab", "url", e.URL, "error", err)
			continue
		}
		opened++
	}
	writeJSON(w, 200, map[string]any{"space": sp, "opened": opened})
}

// windowTabs snapshots the live tabs of one window as store entries.
func (s *Server) windowTabs(windowID int64) []store.Entry {
	var out []store.Entry
	for _, t := range s.tabs.Snapshot() {
		if t.WindowID != windowID || t.URL == "" {
			continue
		}
		out = append(out, store.Entry{URL: t.URL, Title: t.Title})
	}
	return out
}
