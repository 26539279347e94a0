package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/vault"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *vault.Service
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil.
func NewHandler(svc *vault.Service, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, broker: broker}
}

// recordID extracts the record id from the URL (everything after
// /records/). Supports encoded slashes (e.g. people%2Fjake-oshea-1a2b).
func recordID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// WriteRecord handles POST /api/records. Writing an existing title in the
// same category replaces the record; the response id tells the caller
// which record it became.
func (h *Handler) WriteRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req WriteRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Category == "" || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("category and title are required"))
		return
	}

	id, err := h.svc.Write(r.Context(), req.Category, req.Title, req.fields(), req.Content)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCategory) {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown category"))
			return
		}
		slog.Error("write record failed", slog.String("title", req.Title), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.broker != nil {
		h.broker.PublishRecordEvent(sse.EventRecordWritten, id)
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// GetRecord handles GET /api/records/*.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := recordID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	detail, err := h.svc.Read(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrCorrupt):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("record metadata is corrupt"))
		default:
			slog.Error("get record failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ListRecords handles GET /api/records with an optional category filter.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	items, err := h.svc.List(r.Context(), category)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCategory) {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown category"))
			return
		}
		slog.Error("list records failed", slog.String("category", category), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []vault.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": items,
		"total":   len(items),
	})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Graph handles GET /api/graph, returning the full persisted index.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	idx, err := h.svc.Graph(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

// Traverse handles GET /api/graph/traverse?start=...&depth=N.
func (h *Handler) Traverse(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	if start == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'start' is required"))
		return
	}
	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))
	res, err := h.svc.Traverse(r.Context(), start, depth)
	if err != nil {
		slog.Error("traverse failed", slog.String("start", start), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Dedup handles POST /api/dedup, running one deduplication pass.
func (h *Handler) Dedup(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Dedup(r.Context())
	if err != nil {
		slog.Error("dedup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.broker != nil {
		for _, id := range report.Removed {
			h.broker.PublishRecordEvent(sse.EventRecordRemoved, id)
		}
	}
	writeJSON(w, http.StatusOK, report)
}
