package shipping

import (
	"github.com/go-chi/chi/v5"

	"github.com/harborline/harborline/internal/shared"
)

// MountRoutes registers shipping routes. Every route requires gateway scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(shared.RequireScope)

	r.Route("/shipments", func(r chi.Router) {
		r.Get("/", h.listShipments)
		r.Post("/", h.createShipment)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getShipment)
			r.Put("/", h.updateShipment)
			r.Delete("/", h.deleteShipment)
			r.Get("/validate", h.validateShipment)
			r.Post("/lighters", h.addLighter)
			r.Delete("/lighters/{lighterID}", h.removeLighter)
		})
	})
	r.Route("/lighters/{id}", func(r chi.Router) {
		r.Patch("/status", h.updateLighterStatus)
		r.Post("/trucks", h.addTruck)
		r.Delete("/trucks/{truckID}", h.removeTruck)
	})
	r.Post("/trucks/{id}/products", h.addProduct)
	r.Get("/dashboard", h.dashboard)
}
