package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all historical routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assets/{source}/{asset}/history", h.HandleGetHistory)
}
