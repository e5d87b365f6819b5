// Package alphavantage provides a client for the Alpha Vantage quote API.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// dailyRequestLimit is the Alpha Vantage free tier budget.
const dailyRequestLimit = 25

// CashSymbol is the reserved pseudo-symbol for cash positions.
// It is always priced at exactly 1 and never hits the API.
const CashSymbol = "CASH"

// ErrMissingAPIKey indicates the client was constructed without a credential.
// It is a configuration error, fatal to a pipeline run, unlike per-symbol
// fetch failures which callers recover from.
var ErrMissingAPIKey = errors.New("ALPHA_VANTAGE_API_KEY is not set")

// ErrRateLimitExceeded is returned when the daily request budget is exhausted.
type ErrRateLimitExceeded struct {
	Remaining int
}

func (e ErrRateLimitExceeded) Error() string {
	return fmt.Sprintf("alpha vantage daily rate limit exceeded (%d requests remaining)", e.Remaining)
}

// Client for the Alpha Vantage API with a daily request budget.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger

	mu           sync.Mutex
	requestCount int
	counterDay   time.Time
}

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    "https://www.alphavantage.co/query",
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log.With().Str("client", "alphavantage").Logger(),
		counterDay: startOfDay(time.Now()),
	}
}

// Configured reports whether the client holds an API credential.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetRemainingRequests returns the number of requests left in today's budget.
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	return dailyRequestLimit - c.requestCount
}

// ResetDailyCounter resets the daily request counter.
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestCount = 0
	c.counterDay = startOfDay(time.Now())
}

// checkRateLimit consumes one request from the daily budget.
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	if c.requestCount >= dailyRequestLimit {
		return ErrRateLimitExceeded{Remaining: 0}
	}
	c.requestCount++
	return nil
}

// rolloverLocked resets the counter when the day changes. Caller holds mu.
func (c *Client) rolloverLocked() {
	if day := startOfDay(time.Now()); day.After(c.counterDay) {
		c.requestCount = 0
		c.counterDay = day
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// globalQuoteResponse mirrors the GLOBAL_QUOTE payload. Provider error
// payloads arrive in the same body, so all variants are decoded at once.
type globalQuoteResponse struct {
	GlobalQuote  map[string]string `json:"Global Quote"`
	ErrorMessage string            `json:"Error Message"`
	Note         string            `json:"Note"`
	Information  string            `json:"Information"`
}

// GetPrice fetches the current price for a symbol.
// The CASH pseudo-symbol resolves to 1 without a network call.
// Every provider-specific failure shape (error payload, rate-limit note,
// malformed response, transport error) comes back as a plain error; callers
// treat any error as "no quote" and fall back to cached values.
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if symbol == CashSymbol {
		return 1, nil
	}

	if c.apiKey == "" {
		return 0, ErrMissingAPIKey
	}

	if err := c.checkRateLimit(); err != nil {
		return 0, err
	}

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.ErrorMessage != "" {
		c.log.Warn().Str("symbol", symbol).Str("error", result.ErrorMessage).Msg("Provider error")
		return 0, fmt.Errorf("provider error for %s: %s", symbol, result.ErrorMessage)
	}
	if result.Note != "" || result.Information != "" {
		// Rate-limit notices arrive as 200s with a prose body
		c.log.Warn().Str("symbol", symbol).Msg("Provider throttled request")
		return 0, fmt.Errorf("provider throttled request for %s", symbol)
	}

	priceStr, ok := result.GlobalQuote["05. price"]
	if !ok || priceStr == "" {
		c.log.Warn().Str("symbol", symbol).Msg("No current price data")
		return 0, fmt.Errorf("no price data for %s", symbol)
	}

	price := parseFloat64(priceStr)
	if price <= 0 {
		return 0, fmt.Errorf("invalid price %q for %s", priceStr, symbol)
	}

	c.log.Debug().Str("symbol", symbol).Float64("price", price).Msg("Fetched quote")

	return price, nil
}

// parseFloat64 parses Alpha Vantage numeric strings.
// The API uses "None", "-" and empty strings for missing values,
// and suffixes percentages with "%".
func parseFloat64(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" || s == "None" || s == "null" || s == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
