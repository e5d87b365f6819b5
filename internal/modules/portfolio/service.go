package portfolio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service runs the reconciliation pipeline: it turns the configured
// holdings plus quote lookups into one internally consistent payload,
// degrading per-symbol rather than per-run when prices are unavailable.
type Service struct {
	loader       ConfigLoader
	quotes       QuoteProvider
	quoteCache   *QuoteCache
	payloadCache *PayloadCache
	payloadTTL   time.Duration
	log          zerolog.Logger
}

// NewService creates a new portfolio service.
func NewService(
	loader ConfigLoader,
	quotes QuoteProvider,
	quoteCache *QuoteCache,
	payloadCache *PayloadCache,
	payloadTTL time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		loader:       loader,
		quotes:       quotes,
		quoteCache:   quoteCache,
		payloadCache: payloadCache,
		payloadTTL:   payloadTTL,
		log:          log.With().Str("component", "portfolio_service").Logger(),
	}
}

// BuildPayload returns the portfolio payload, serving the cached snapshot
// when it is still fresh and running the full pipeline otherwise.
//
// Failure policy: a missing config or missing provider credential aborts
// the run with a single error and no partial payload. A single symbol's
// fetch failure never aborts anything - that holding degrades through the
// fallback chain instead.
func (s *Service) BuildPayload(ctx context.Context) (*PortfolioPayload, error) {
	previous, age, ok := s.payloadCache.Load()
	if ok && age <= s.payloadTTL {
		s.log.Debug().Dur("age", age).Msg("Serving fresh cached payload")
		return previous, nil
	}

	// The expired snapshot is kept: it donates last-known prices below.
	return s.rebuild(ctx, previous)
}

// Rebuild runs the full pipeline unconditionally, bypassing the payload
// cache freshness check. Used by the background refresh job so the first
// page load after expiry finds a warm snapshot.
func (s *Service) Rebuild(ctx context.Context) (*PortfolioPayload, error) {
	previous, _, _ := s.payloadCache.Load()
	return s.rebuild(ctx, previous)
}

func (s *Service) rebuild(ctx context.Context, previous *PortfolioPayload) (*PortfolioPayload, error) {
	runLog := s.log.With().Str("run_id", uuid.NewString()).Logger()

	cfg, err := s.loader.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio config: %w", err)
	}
	if cfg == nil {
		return nil, ErrConfigNotFound
	}

	if !s.quotes.Configured() {
		return nil, ErrMissingAPIKey
	}

	priced := s.resolveHoldings(ctx, runLog, cfg.Holdings, previous)
	payload := aggregate(cfg, priced)

	s.payloadCache.Save(payload)

	runLog.Info().
		Int("holdings", len(priced)).
		Float64("total", payload.TotalCurrentValue).
		Msg("Portfolio payload rebuilt")

	return payload, nil
}

// resolveHoldings prices every holding concurrently and joins before
// aggregation. Order between fetches is irrelevant; results are written
// into an index-addressed slice so the output order matches the config.
func (s *Service) resolveHoldings(ctx context.Context, log zerolog.Logger, holdings []Holding, previous *PortfolioPayload) []PricedHolding {
	results := make([]PricedHolding, len(holdings))

	var wg sync.WaitGroup
	for i, h := range holdings {
		wg.Add(1)
		go func(i int, h Holding) {
			defer wg.Done()
			price, source := s.resolvePrice(ctx, log, h.Symbol, previous)
			results[i] = PricedHolding{
				Holding:      h,
				CurrentPrice: price,
				Value:        mulShares(price, h.Shares),
			}
			log.Debug().
				Str("symbol", h.Symbol).
				Float64("price", price).
				Str("source", source).
				Msg("Resolved price")
		}(i, h)
	}
	wg.Wait()

	return results
}

// resolvePrice walks the fallback chain for one symbol:
//  1. live quote from the provider (authoritative when positive; also
//     written through to the quote cache),
//  2. non-expired quote cache entry,
//  3. last known price from the previous payload snapshot, stale or not,
//  4. zero.
func (s *Service) resolvePrice(ctx context.Context, log zerolog.Logger, symbol string, previous *PortfolioPayload) (float64, string) {
	price, err := s.quotes.GetPrice(ctx, symbol)
	if err == nil && validPrice(price) {
		s.quoteCache.Set(symbol, price)
		return price, "provider"
	}
	if err != nil {
		log.Debug().Err(err).Str("symbol", symbol).Msg("Quote fetch failed, falling back")
	}

	if cached, ok := s.quoteCache.Get(symbol); ok && validPrice(cached) {
		return cached, "quote_cache"
	}

	if previous != nil {
		for _, ph := range previous.Holdings {
			if ph.Symbol == symbol && validPrice(ph.CurrentPrice) {
				return ph.CurrentPrice, "previous_payload"
			}
		}
	}

	return 0, "unavailable"
}

// aggregate folds priced holdings into the payload. Cash comes from the
// config exactly once: it seeds both the total and the "Cash" category,
// so the total always equals the sum of the categorized values.
func aggregate(cfg *PortfolioConfig, priced []PricedHolding) *PortfolioPayload {
	cash := decimal.NewFromFloat(cfg.Cash)
	total := cash
	categorized := map[string]decimal.Decimal{"Cash": cash}

	for _, h := range priced {
		v := decimal.NewFromFloat(h.Value)
		total = total.Add(v)

		category := h.Category
		if category == "" {
			category = "Uncategorized"
		}
		categorized[category] = categorized[category].Add(v)
	}

	values := make(map[string]float64, len(categorized))
	for category, v := range categorized {
		values[category] = v.InexactFloat64()
	}

	return &PortfolioPayload{
		TotalCurrentValue: total.InexactFloat64(),
		CategorizedValues: values,
		Holdings:          priced,
		CategoriesConfig:  cfg.Categories,
	}
}

// mulShares computes price * shares without accumulating float drift.
func mulShares(price, shares float64) float64 {
	if !validPrice(price) {
		return 0
	}
	return decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(shares)).InexactFloat64()
}

// validPrice rejects the values the fallback chain must not propagate:
// zero, negatives, NaN and infinities all mean "unavailable".
func validPrice(price float64) bool {
	return price > 0 && !math.IsNaN(price) && !math.IsInf(price, 0)
}
