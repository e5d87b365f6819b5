package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetPortfolio)      // Full payload (holdings, totals, categories)
		r.Get("/summary", h.HandleGetSummary) // Formatted totals for the summary card
	})
}
