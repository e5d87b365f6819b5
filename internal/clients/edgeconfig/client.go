// Package edgeconfig provides a read-only client for the Vercel Edge Config
// key-value store, which holds the declarative portfolio description.
package edgeconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// Client for the Edge Config read API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Edge Config client.
// baseURL is the connection URL, e.g. https://edge-config.vercel.com/ecfg_xxx
func NewClient(baseURL, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "edgeconfig").Logger(),
	}
}

// Get fetches the portfolio description from the store.
//
// Absence is not an error at this layer: a missing key, unreachable store,
// unexpected status or malformed JSON all return (nil, nil). The caller
// (the pipeline) decides whether absence is fatal to the current run.
func (c *Client) Get(ctx context.Context) (*portfolio.PortfolioConfig, error) {
	if c.baseURL == "" {
		c.log.Debug().Msg("Edge Config URL not configured")
		return nil, nil
	}

	url := c.baseURL + "/item/portfolio"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("Edge Config unreachable")
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.log.Warn().Msg("Portfolio key not found in Edge Config")
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("Edge Config returned error status")
		return nil, nil
	}

	// The stored value may be either the JSON object itself or a JSON
	// string containing JSON. Both shapes occur in practice.
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		c.log.Warn().Err(err).Msg("Failed to parse Edge Config response")
		return nil, nil
	}

	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		raw = json.RawMessage(inner)
	}

	var cfg portfolio.PortfolioConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		c.log.Warn().Err(err).Msg("Malformed portfolio config value")
		return nil, nil
	}

	c.log.Debug().
		Int("holdings", len(cfg.Holdings)).
		Float64("cash", cfg.Cash).
		Msg("Loaded portfolio config")

	return &cfg, nil
}
