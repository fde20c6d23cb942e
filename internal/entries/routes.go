package entries

import (
	"github.com/go-chi/chi/v5"

	"github.com/harborline/harborline/internal/shared"
)

// MountRoutes registers the board JSON routes under /boards/{boardID}/entries.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(shared.RequireScope)
		r.Get("/boards/{boardID}/entries", h.list)
		r.Post("/boards/{boardID}/entries", h.create)
		r.Patch("/boards/{boardID}/entries/{entryID}", h.update)
		r.Delete("/boards/{boardID}/entries/{entryID}", h.delete)
	})
}

// MountStream registers the long-lived board event stream. It is kept apart
// from MountRoutes so request timeouts and compression can skip it.
func (h *Handler) MountStream(r chi.Router) {
	r.With(shared.RequireScope).Get("/boards/{boardID}/entries/events", h.events)
}
