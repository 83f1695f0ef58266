package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assets/{source}/{asset}", h.HandleGetAsset)        // Single asset summary
	r.Get("/portfolio/consolidated", h.HandleGetConsolidated) // Grouped portfolio view
}
