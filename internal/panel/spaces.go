package panel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/homed/internal/store"
)

func (s *Server) spaceRoutes(r chi.Router) {
	r.Get("/api/windows/{windowID}/space", s.handleWindowSpace)

	r.Route("/api/spaces/{spaceID}", func(r chi.Router) {
		r.Get("/", s.handleGetSpace)
		r.Delete("/", s.handleDeleteSpace)
		r.Put("/meta", s.handleSpaceMeta)
		r.Put("/auto-archive", s.handleAutoArchive)

		r.Post("/pins", s.handlePin)
		r.Delete("/pins/{index}", s.handleUnpinIndex)
		r.Delete("/pins", s.handleUnpinURL)
		r.Put("/pins/folder", s.handleMoveToFolder)

		r.Post("/folders", s.handleCreateFolder)
		r.Delete("/folders/{index}", s.handleDeleteFolder)
		r.Put("/folders/{index}/collapsed", s.handleFolderCollapsed)

		r.Get("/recently-closed", s.handleRecentlyClosed)
		r.Delete("/recently-closed", s.handleRemoveRecentlyClosed)

		r.Post("/sync", s.handleSync)
	})

	r.Get("/api/groups/{groupID}/collapsed", s.handleGetGroupCollapsed)
	r.Put("/api/groups/{groupID}/collapsed", s.handleSetGroupCollapsed)
}

// handleWindowSpace resolves the space bound to a browser window, creating
// one on first sight.
func (s *Server) handleWindowSpace(w http.ResponseWriter, r *http.Request) {
	windowID, err := strconv.ParseInt(chi.URLParam(r, "windowID"), 10, 64)
	if err != nil {
		writeError(w, 400, err)
		return
	}
	sp, err := s.store.GetOrCreateSpace(r.Context(), windowID)
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, sp)
}

func (s *Server) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	sp, err := s.store.Space(r.Context(), chi.URLParam(r, "spaceID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, sp)
}

func (s *Server) handleDeleteSpace(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSpace(r.Context(), chi.URLParam(r, "spaceID")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "deleted"})
}

func (s *Server) handleSpaceMeta(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string      `json:"name"`
		Emoji    string      `json:"emoji"`
		Sections []string    `json:"sections"`
		Theme    store.Theme `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	spaceID := chi.URLParam(r, "spaceID")
	if err := s.store.UpdateSpaceMeta(r.Context(), spaceID, req.Name, req.Emoji, req.Sections, req.Theme); err != nil {
		writeStoreError(w, err)
		return
	}
	s.respondSpace(w, r, spaceID)
}

func (s *Server) handleAutoArchive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hours int `json:"hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	spaceID := chi.URLParam(r, "spaceID")
	if err := s.store.SetAutoArchiveHours(r.Context(), spaceID, req.Hours); err != nil {
		writeStoreError(w, err)
		return
	}
	s.respondSpace(w, r, spaceID)
}

func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	var e store.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, 400, err)
		return
	}
	if e.URL == "" {
		writeJSON(w, 400, map[string]string{"error": "url is required"})
		return
	}
	spaceID := chi.URLParam(r, "spaceID")
	if err := s.store.PinTab(r.Context(), spaceID, e); err != nil {
		writeStoreError(w, err)
		return
	}
	s.respondSpace(w, r, spaceID)
}

func (s *Server) handleUnpinIndex(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, 400, err)
		return
	}
	spaceID := chi.URLParam(r, "spaceID")
	if err := s.store.UnpinByIndex(r.Context(), spaceID, index); err != nil {
		writeStoreError(w, err)
		return
	}
	s.respondSpace(w, r, spaceID)
}

// handleUnpinURL unpins by URL from the ?url= query. Unknown URLs are a
// no-op, matching the index-free removal path.
func (s *Server) handleUnpinURL(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeJSON(w, 400, map[string]string{"error": "url query parameter is required"})
		return
	}
	spaceID := chi.URLParam(r, "spaceID")
	if err := s.store.UnpinByURL(r.Context(), spaceID, url); err != nil {
		writeStoreError(w, err)
		return
	}
	s.respondSpace(w, r, spaceID)
}

func (s *Server) handleMoveToFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL         string `json:"url"`
		FolderIndex int    `json:"folderIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	spaceID := chi.URLParam(r, "spaceID")
	if err := s.store.MoveEntryToFolder(r.Context(), spaceID, req.URL, req.FolderIndex); err != nil {
		writeStoreError(w, err)
		return
	}
	s.respondSpace(w, r, spaceID)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	spaceID := chi.URLParam(r, "spaceID")
	if err := s.store.CreatePinnedFolder(r.Context(), spaceID, req.Name); err != nil {
		writeStoreError(w, err)
		return
	}
	s.respondSpace(w, r, spaceID)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, 400, err)
		return
	}
	spaceID := chi.URLParam(r, "spaceID")
	if err := s.store.DeletePinnedFolder(r.Context(), spaceID, index); err != nil {
		writeStoreError(w, err)
		return
	}
	s.respondSpace(w, r, spaceID)
}

func (s *Server) handleFolderCollapsed(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, 400, err)
		return
	}
	var req struct {
		Collapsed bool `json:"collapsed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	spaceID := chi.URLParam(r, "spaceID")
	if err := s.store.SetFolderCollapsed(r.Context(), spaceID, index, req.Collapsed); err != nil {
		writeStoreError(w, err)
		return
	}
	s.respondSpace(w, r, spaceID)
}

func (s *Server) handleRecentlyClosed(w http.ResponseWriter, r *http.Request) {
	sp, err := s.store.Space(r.Context(), chi.URLParam(r, "spaceID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	closed := sp.RecentlyClosed
	if closed == nil {
		closed = []store.ClosedEntry{}
	}
	writeJSON(w, 200, closed)
}

// handleRemoveRecentlyClosed drops one entry by ?url=, or the whole list
// when no url is given.
func (s *Server) handleRemoveRecentlyClosed(w http.ResponseWriter, r *http.Request) {
	spaceID := chi.URLParam(r, "spaceID")
	url := r.URL.Query().Get("url")

	var err error
	if url == "" {
		err = s.store.ClearRecentlyClosed(r.Context(), spaceID)
	} else {
		err = s.store.RemoveRecentlyClosed(r.Context(), spaceID, url)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

// handleSync flushes the debounced workspace snapshot for this space now.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if err := s.syncer.Flush(r.Context(), chi.URLParam(r, "spaceID")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "synced"})
}

func (s *Server) handleGetGroupCollapsed(w http.ResponseWriter, r *http.Request) {
	collapsed, err := s.store.GroupCollapsed(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]bool{"collapsed": collapsed})
}

func (s *Server) handleSetGroupCollapsed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Collapsed bool `json:"collapsed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if err := s.store.SetGroupCollapsed(r.Context(), chi.URLParam(r, "groupID"), req.Collapsed); err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

// respondSpace writes the space's current state after a mutation so the
// client never needs a follow-up read.
func (s *Server) respondSpace(w http.ResponseWriter, r *http.Request, spaceID string) {
	sp, err := s.store.Space(r.Context(), spaceID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, sp)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, err)
		return
	}
	writeError(w, 500, err)
}
