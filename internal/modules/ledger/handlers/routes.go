package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/imports/{source}", h.HandleImport)
	r.Get("/transactions/{source}", h.HandleListTransactions)
}
