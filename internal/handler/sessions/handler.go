package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/echomentor/backend/internal/model/session"
	"github.com/echomentor/backend/internal/search"
	"github.com/echomentor/backend/internal/store"
	"github.com/echomentor/backend/pkg/utils"
)

const searchLimit = 20

// Summarizer produces the weekly-summary text. Optional: without one the
// endpoint still returns the session list with a skip notice.
type Summarizer interface {
	WeeklySummary(ctx context.Context, sessions []session.Session) (string, error)
}

// Searcher queries the completed-session index. Optional.
type Searcher interface {
	Search(query string, limit int) ([]search.Hit, error)
}

// Deleter removes a session from the search index when its record is
// deleted, so search never returns hits for sessions that no longer exist.
// Optional.
type Deleter interface {
	DeleteSession(id string) error
}

// Handler exposes session CRUD plus the dashboard's summary and search
// endpoints.
type Handler struct {
	store      store.SessionStore
	summarizer Summarizer
	searcher   Searcher
	deleter    Deleter
}

func New(s store.SessionStore, summarizer Summarizer, searcher Searcher, deleter Deleter) *Handler {
	return &Handler{store: s, summarizer: summarizer, searcher: searcher, deleter: deleter}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(sr chi.Router) {
		sr.Post("/", h.handleCreate)
		sr.Get("/", h.handleList)
		sr.Get("/search", h.handleSearch)
		sr.Get("/{id}", h.handleGet)
		sr.Put("/{id}", h.handleUpdate)
		sr.Delete("/{id}", h.handleDelete)
	})
	r.Get("/weekly-summary", h.handleWeeklySummary)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var rec session.Session
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.store.Create(r.Context(), rec)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidSession):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrAlreadyExists):
			utils.RespondError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("[sessions] create failed: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		}
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{"data": created})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		log.Printf("[sessions] list failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("[sessions] get failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": rec})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch session.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			utils.RespondError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, store.ErrStatusRegression), errors.Is(err, store.ErrInvalidSession):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[sessions] update failed: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "failed to update session")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": updated})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("[sessions] delete failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	if h.deleter != nil {
		if err := h.deleter.DeleteSession(id); err != nil {
			log.Printf("[sessions] index purge failed for session=%s: %v", id, err)
		}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "search unavailable")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		utils.RespondError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}

	hits, err := h.searcher.Search(query, searchLimit)
	if err != nil {
		log.Printf("[sessions] search failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": hits, "count": len(hits)})
}

func (h *Handler) handleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	end := time.Now()
	start := end.AddDate(0, 0, -7)

	list, err := h.store.ListCompletedSince(r.Context(), start.Unix())
	if err != nil {
		log.Printf("[sessions] weekly summary query failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load sessions")
		return
	}

	summary := "Summary generation skipped. To enable AI-powered summaries, add GOODFIRE_API_KEY to your environment."
	if len(list) == 0 {
		summary = "No sessions found for the past week."
	} else if h.summarizer != nil {
		generated, err := h.summarizer.WeeklySummary(r.Context(), list)
		if err != nil {
			log.Printf("[sessions] summary generation failed: %v", err)
		} else {
			summary = generated
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"data":    list,
		"count":   len(list),
		"summary": summary,
		"period": map[string]string{
			"start": start.UTC().Format(time.RFC3339),
			"end":   end.UTC().Format(time.RFC3339),
		},
	})
}
