// Package portfolio implements the price-enrichment and reconciliation
// pipeline: configured holdings are priced from the quote provider with a
// cache fallback chain, aggregated by category, and snapshotted for reuse.
package portfolio

import (
	"context"
	"errors"
)

// Holding is one configured position. Config is the sole source of truth
// for identity and share count; holdings are immutable once loaded.
type Holding struct {
	Symbol           string   `json:"symbol"`
	Shares           float64  `json:"shares"`
	Category         string   `json:"category"`
	TargetPercentage *float64 `json:"targetPercentage,omitempty"` // optional target allocation (0-100)
}

// PricedHolding is a holding enriched with a resolved price.
// CurrentPrice 0 signals "unknown". Rebuilt on every pipeline run,
// never mutated in place.
type PricedHolding struct {
	Holding
	CurrentPrice float64 `json:"currentPrice"`
	Value        float64 `json:"value"` // CurrentPrice * Shares
}

// PortfolioConfig is the declarative portfolio description owned by the
// remote configuration store. Read-only to this system.
type PortfolioConfig struct {
	Holdings   []Holding         `json:"holdings"`
	Cash       float64           `json:"cash"`
	Categories map[string]string `json:"categories"`
}

// PortfolioPayload is the full response produced by one pipeline run.
//
// Invariants: TotalCurrentValue equals the sum of CategorizedValues, and
// each category's value equals the sum of its holdings' values, with cash
// carried under the "Cash" category.
type PortfolioPayload struct {
	TotalCurrentValue float64            `json:"totalCurrentValue"`
	CategorizedValues map[string]float64 `json:"categorizedValues"`
	Holdings          []PricedHolding    `json:"holdings"`
	CategoriesConfig  map[string]string  `json:"categoriesConfig"`
}

// ConfigLoader fetches the portfolio description from the remote store.
// Absence (key missing, store unreachable, malformed JSON) is returned as
// (nil, nil); the caller decides how absence surfaces.
type ConfigLoader interface {
	Get(ctx context.Context) (*PortfolioConfig, error)
}

// QuoteProvider fetches current prices for symbols. Any error means
// "no quote" to the resolver; provider-specific failure shapes never
// escape the client.
type QuoteProvider interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
	Configured() bool
}

// ErrConfigNotFound indicates the portfolio key is absent from the remote
// configuration store. Fatal to the run; no partial payload is produced.
var ErrConfigNotFound = errors.New(`portfolio not found in Edge Config: create a key named "portfolio" with a valid JSON value`)

// ErrMissingAPIKey indicates the quote provider credential is absent.
// Fatal to the run, as opposed to per-symbol fetch failures.
var ErrMissingAPIKey = errors.New("quote provider API key is not configured")
