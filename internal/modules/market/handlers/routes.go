package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers the market routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/market", func(r chi.Router) {
		r.Get("/issuers", h.HandleSearchIssuers)
		r.Post("/issuers/sync", h.HandleSyncIssuers)
		r.Get("/quotes/{ticker}", h.HandleGetQuote)
		r.Post("/intraday/sync", h.HandleSyncIntraday)
		r.Get("/top", h.HandleGetTop)
		r.Get("/indices", h.HandleGetIndices)
		r.Get("/forex", h.HandleGetForex)
		r.Get("/rates", h.HandleGetRates)
		r.Get("/tape", h.HandleGetTape)
		r.Get("/assets/{ticker}", h.HandleGetAsset)
		r.Get("/statements/{ticker}/{kind}", h.HandleGetStatement)
	})
}
