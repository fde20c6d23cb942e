package entries

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harborline/harborline/internal/platform/httpx"
	"github.com/harborline/harborline/internal/shared"
)

const keepAliveInterval = 25 * time.Second

// Handler serves the entry board API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a new entries handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	rows, err := h.service.List(r.Context(), scope, boardID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	items := make([]EntryResponse, 0, len(rows))
	for i := range rows {
		items = append(items, ToResponse(&rows[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	e, err := h.service.Create(r.Context(), scope, boardID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ToResponse(e))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "entryID")
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := httpx.DecodeJSON(r, &raw); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	updates, err := ParseUpdates(raw)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	e, err := h.service.Update(r.Context(), scope, boardID, id, updates)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToResponse(e))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "entryID")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), scope, boardID, id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// events streams board changes as server-sent events.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	stream, err := h.service.Subscribe(r.Context(), scope, boardID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Warn("board stream cannot flush", slog.Any("error", err))
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			_ = rc.Flush()
		case ev, ok := <-stream:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Raw); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.ValidationProblem(w, map[string]string{param: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var fields FieldErrors
	switch {
	case errors.As(err, &fields):
		httpx.ValidationProblem(w, fields)
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateChallan):
		httpx.Problem(w, http.StatusConflict, "Duplicate Challan", err.Error())
	default:
		h.logger.Error("entries request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
	}
}
