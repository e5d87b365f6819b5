package portfolio

import (
	"encoding/json"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/rs/zerolog"
)

// cachedQuote is the structure stored in the current_prices table.
type cachedQuote struct {
	Price float64 `json:"price"`
}

// QuoteCache is the durable per-symbol price cache. Reads fail closed
// (any error is a miss), writes fail open (errors are swallowed so the
// pipeline keeps using the in-memory value for the current response).
type QuoteCache struct {
	repo *clientdata.Repository
	ttl  time.Duration
	log  zerolog.Logger
}

// NewQuoteCache creates a quote cache with the given freshness window.
func NewQuoteCache(repo *clientdata.Repository, ttl time.Duration, log zerolog.Logger) *QuoteCache {
	if ttl <= 0 {
		ttl = clientdata.TTLCurrentPrice
	}
	return &QuoteCache{
		repo: repo,
		ttl:  ttl,
		log:  log.With().Str("component", "quote_cache").Logger(),
	}
}

// Get returns the cached price for a symbol if it is still fresh.
// Expired entries behave as absent without being deleted (lazy
// invalidation; the cleanup job reclaims them).
func (c *QuoteCache) Get(symbol string) (float64, bool) {
	data, err := c.repo.GetIfFresh("current_prices", symbol)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote cache read failed, treating as miss")
		return 0, false
	}
	if data == nil {
		return 0, false
	}

	var cached cachedQuote
	if err := json.Unmarshal(data, &cached); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Corrupt quote cache entry, treating as miss")
		return 0, false
	}

	return cached.Price, true
}

// Set stores a freshly fetched price. Write failures are logged and
// swallowed; staleness tolerance bounds the impact of a lost write.
func (c *QuoteCache) Set(symbol string, price float64) {
	if err := c.repo.Store("current_prices", symbol, cachedQuote{Price: price}, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
	}
}
