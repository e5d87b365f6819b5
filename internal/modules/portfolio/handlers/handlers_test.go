package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/modules/portfolio"
)

type stubLoader struct {
	cfg *portfolio.PortfolioConfig
	err error
}

func (s *stubLoader) Get(ctx context.Context) (*portfolio.PortfolioConfig, error) {
	return s.cfg, s.err
}

type stubQuotes struct {
	prices     map[string]float64
	configured bool
}

func (s *stubQuotes) GetPrice(ctx context.Context, symbol string) (float64, error) {
	return s.prices[symbol], nil
}

func (s *stubQuotes) Configured() bool {
	return s.configured
}

func setupTestRouter(t *testing.T, loader portfolio.ConfigLoader, quotes portfolio.QuoteProvider) chi.Router {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, clientdata.InitSchema(db))

	quoteCache := portfolio.NewQuoteCache(clientdata.NewRepository(db), 30*time.Minute, zerolog.Nop())
	payloadCache, err := portfolio.NewPayloadCache(db, zerolog.Nop())
	require.NoError(t, err)

	service := portfolio.NewService(loader, quotes, quoteCache, payloadCache, time.Hour, zerolog.Nop())

	r := chi.NewRouter()
	NewHandler(service, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func testConfig() *portfolio.PortfolioConfig {
	return &portfolio.PortfolioConfig{
		Holdings: []portfolio.Holding{
			{Symbol: "ABC", Shares: 10, Category: "Equity"},
		},
		Cash:       500,
		Categories: map[string]string{"Equity": "#ff0000", "Cash": "#00ff00"},
	}
}

func TestHandleGetPortfolio(t *testing.T) {
	r := setupTestRouter(t,
		&stubLoader{cfg: testConfig()},
		&stubQuotes{prices: map[string]float64{"ABC": 20}, configured: true},
	)

	req := httptest.NewRequest("GET", "/portfolio", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var payload portfolio.PortfolioPayload
	require.NoError(t, json.NewDecoder(w.Body).Decode(&payload))

	assert.InDelta(t, 700.0, payload.TotalCurrentValue, 1e-9)
	assert.InDelta(t, 200.0, payload.CategorizedValues["Equity"], 1e-9)
	assert.InDelta(t, 500.0, payload.CategorizedValues["Cash"], 1e-9)
	require.Len(t, payload.Holdings, 1)
	assert.Equal(t, 200.0, payload.Holdings[0].Value)
	assert.Equal(t, "#ff0000", payload.CategoriesConfig["Equity"])
}

func TestHandleGetPortfolioConfigMissing(t *testing.T) {
	r := setupTestRouter(t,
		&stubLoader{cfg: nil},
		&stubQuotes{configured: true},
	)

	req := httptest.NewRequest("GET", "/portfolio", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, portfolio.ErrConfigNotFound.Error(), body["error"])
}

func TestHandleGetPortfolioMissingAPIKey(t *testing.T) {
	r := setupTestRouter(t,
		&stubLoader{cfg: testConfig()},
		&stubQuotes{configured: false},
	)

	req := httptest.NewRequest("GET", "/portfolio", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, portfolio.ErrMissingAPIKey.Error(), body["error"])
}

func TestHandleGetSummary(t *testing.T) {
	r := setupTestRouter(t,
		&stubLoader{cfg: testConfig()},
		&stubQuotes{prices: map[string]float64{"ABC": 20}, configured: true},
	)

	req := httptest.NewRequest("GET", "/portfolio/summary", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		TotalCurrentValue float64 `json:"totalCurrentValue"`
		TotalFormatted    string  `json:"totalFormatted"`
		Categories        []struct {
			Category   string  `json:"category"`
			Value      float64 `json:"value"`
			Formatted  string  `json:"formatted"`
			Percentage float64 `json:"percentage"`
			Color      string  `json:"color"`
		} `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))

	assert.InDelta(t, 700.0, body.TotalCurrentValue, 1e-9)
	assert.Equal(t, "$700.00", body.TotalFormatted)

	require.Len(t, body.Categories, 2)
	// Sorted by value descending: Cash 500 before Equity 200
	assert.Equal(t, "Cash", body.Categories[0].Category)
	assert.Equal(t, "$500.00", body.Categories[0].Formatted)
	assert.InDelta(t, 500.0/700.0*100, body.Categories[0].Percentage, 1e-9)
	assert.Equal(t, "Equity", body.Categories[1].Category)
	assert.Equal(t, "#ff0000", body.Categories[1].Color)
}
