// Package handlers provides HTTP handlers for the portfolio dashboard API.
package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sort"

	"github.com/Rhymond/go-money"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns the full portfolio payload.
// GET /api/portfolio
//
// Responds 200 with a complete, internally consistent payload, or 500 with
// a single {error} object - never a partial payload.
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	payload, err := h.service.BuildPayload(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio payload")
		h.writeError(w, http.StatusInternalServerError, userMessage(err))
		return
	}

	h.writeJSON(w, http.StatusOK, payload)
}

// categorySummary is one row of the summary card.
type categorySummary struct {
	Category   string  `json:"category"`
	Value      float64 `json:"value"`
	Formatted  string  `json:"formatted"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// HandleGetSummary returns formatted per-category totals for the summary card.
// GET /api/portfolio/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	payload, err := h.service.BuildPayload(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio payload")
		h.writeError(w, http.StatusInternalServerError, userMessage(err))
		return
	}

	categories := make([]categorySummary, 0, len(payload.CategorizedValues))
	for category, value := range payload.CategorizedValues {
		pct := 0.0
		if payload.TotalCurrentValue > 0 {
			pct = value / payload.TotalCurrentValue * 100
		}
		categories = append(categories, categorySummary{
			Category:   category,
			Value:      value,
			Formatted:  formatUSD(value),
			Percentage: pct,
			Color:      payload.CategoriesConfig[category],
		})
	}

	// Largest categories first
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Value > categories[j].Value
	})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalCurrentValue": payload.TotalCurrentValue,
		"totalFormatted":    formatUSD(payload.TotalCurrentValue),
		"categories":        categories,
	})
}

// formatUSD renders a value as a display currency string.
func formatUSD(value float64) string {
	return money.New(int64(math.Round(value*100)), money.USD).Display()
}

// userMessage keeps user-visible errors terse: configuration errors carry
// their own wording, anything else collapses to one generic message.
func userMessage(err error) string {
	if errors.Is(err, portfolio.ErrConfigNotFound) || errors.Is(err, portfolio.ErrMissingAPIKey) {
		return err.Error()
	}
	return "Failed to fetch portfolio data."
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
