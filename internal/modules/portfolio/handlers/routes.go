package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.HandleListUsers)
	r.Post("/users", h.HandleCreateUser)
	r.Get("/users/{userID}/portfolios", h.HandleListPortfolios)
	r.Post("/users/{userID}/portfolios", h.HandleCreatePortfolio)

	r.Get("/portfolios/{id}", h.HandleGetPortfolio)
	r.Delete("/portfolios/{id}", h.HandleDeletePortfolio)

	// Read-only views
	r.Get("/portfolios/{id}/slots", h.HandleGetSlots)
	r.Get("/portfolios/{id}/holdings", h.HandleGetHoldings)
	r.Get("/portfolios/{id}/profit-loss", h.HandleGetProfitLoss)
	r.Get("/portfolios/{id}/summary", h.HandleGetSummary)
	r.Get("/portfolios/{id}/cash/history", h.HandleGetCashHistory)
}
