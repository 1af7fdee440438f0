package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trading routes
func (h *TradingHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/transactions", h.HandleListTransactions)
	r.Post("/portfolios/{id}/transactions", h.HandleAddTransaction)
	r.Delete("/transactions/{id}", h.HandleDeleteTransaction)
}
