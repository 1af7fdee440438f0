package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers cash routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/cash", h.HandleListMovements)
	r.Post("/portfolios/{id}/cash", h.HandleAddMovement)
	r.Get("/portfolios/{id}/cash/balance", h.HandleGetBalance)
	r.Delete("/cash/{id}", h.HandleDeleteMovement)
}
