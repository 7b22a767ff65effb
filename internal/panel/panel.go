// Package panel is the HTTP surface of the daemon. It exposes scrape
// triggers, space and workspace CRUD, settings, the live tab list, and a
// server-sent event stream of push notifications.
package panel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/homed/internal/browser"
	"github.com/hazyhaar/homed/internal/notify"
	"github.com/hazyhaar/homed/internal/scrape"
	"github.com/hazyhaar/homed/internal/service"
	"github.com/hazyhaar/homed/internal/store"
)

// Scraper is the scrape orchestrator as the panel sees it.
type Scraper interface {
	FetchOrScrape(ctx context.Context, svc service.Name) scrape.Result
}

// Tabs is the live tab view, backed by the browser registry.
type Tabs interface {
	Snapshot() []browser.TabState
	CloseTab(ctx context.Context, id string) error
}

// Opener opens a URL in a new browser tab. Used by workspace restore.
type Opener interface {
	OpenTab(ctx context.Context, url string) error
}

// Server holds the panel's dependencies and builds its router.
type Server struct {
	store   *store.Store
	scraper Scraper
	tabs    Tabs
	opener  Opener
	syncer  *store.Syncer
	hub     *notify.Hub
	logger  *slog.Logger
}

// Config wires a Server.
type Config struct {
	Store   *store.Store
	Scraper Scraper
	Tabs    Tabs
	Opener  Opener
	Syncer  *store.Syncer
	Hub     *notify.Hub
	Logger  *slog.Logger
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		store:   cfg.Store,
		scraper: cfg.Scraper,
		tabs:    cfg.Tabs,
		opener:  cfg.Opener,
		syncer:  cfg.Syncer,
		hub:     cfg.Hub,
		logger:  cfg.Logger,
	}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/scrape", s.handleScrape)
	r.Get("/api/tabs", s.handleTabs)
	r.Delete("/api/tabs/{tabID}", s.handleCloseTab)
	r.Get("/api/events", s.handleEvents)

	r.Get("/api/settings/slack-workspace", s.handleGetSlackWorkspace)
	r.Put("/api/settings/slack-workspace", s.handleSetSlackWorkspace)

	s.spaceRoutes(r)
	s.workspaceRoutes(r)
	return r
}

// handleScrape triggers a fetch for one service. The response is always
// 200 with a tagged result; failures live inside the envelope so the
// caller gets a user-facing message rather than a transport error.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Service service.Name `json:"service"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if !service.Valid(req.Service) {
		writeJSON(w, 400, map[string]string{"error": "unknown service: " + string(req.Service)})
		return
	}
	writeJSON(w, 200, s.scraper.FetchOrScrape(r.Context(), req.Service))
}

func (s *Server) handleTabs(w http.ResponseWriter, _ *http.Request) {
	tabs := s.tabs.Snapshot()
	if tabs == nil {
		tabs = []browser.TabState{}
	}
	writeJSON(w, 200, tabs)
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tabID")
	if err := s.tabs.CloseTab(r.Context(), id); err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "closed"})
}

// handleEvents streams hub messages as server-sent events until the client
// disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, cancel := s.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(200)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if err := enc.Encode(msg); err != nil {
				return
			}
			// Encode already wrote one newline; the blank line ends
			// the event.
			if _, err := w.Write([]byte("\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleGetSlackWorkspace(w http.ResponseWriter, r *http.Request) {
	id, err := s.store.SlackWorkspaceID(r.Context())
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]string{"slackWorkspaceId": id})
}

func (s *Server) handleSetSlackWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SlackWorkspaceID string `json:"slackWorkspaceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if err := s.store.SetSlackWorkspaceID(r.Context(), req.SlackWorkspaceID); err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
