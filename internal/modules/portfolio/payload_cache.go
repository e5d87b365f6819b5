package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// payloadKey is the single row key; the cache holds exactly one snapshot.
const payloadKey = "snapshot"

// PayloadCache persists the last full pipeline result. A fresh snapshot
// lets a request skip the pipeline entirely; a stale one still serves as
// the previous-known-price donor during reconciliation.
type PayloadCache struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPayloadCache creates the payload cache and its backing table.
func NewPayloadCache(db *sql.DB, log zerolog.Logger) (*PayloadCache, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS portfolio_payload (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			saved_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create portfolio_payload table: %w", err)
	}

	return &PayloadCache{
		db:  db,
		log: log.With().Str("component", "payload_cache").Logger(),
	}, nil
}

// Load returns the stored snapshot and its age. Fails closed: a missing
// row, read error or corrupt blob all come back as (nil, 0, false).
// Staleness is the caller's call - an expired snapshot is still a valid
// fallback source, just not a valid primary answer.
func (c *PayloadCache) Load() (*PortfolioPayload, time.Duration, bool) {
	var data []byte
	var savedAt int64
	err := c.db.QueryRow(
		"SELECT data, saved_at FROM portfolio_payload WHERE key = ?", payloadKey,
	).Scan(&data, &savedAt)
	if err == sql.ErrNoRows {
		return nil, 0, false
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("Payload cache read failed, treating as miss")
		return nil, 0, false
	}

	var payload PortfolioPayload
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		c.log.Warn().Err(err).Msg("Corrupt payload snapshot, treating as miss")
		return nil, 0, false
	}

	age := time.Since(time.Unix(savedAt, 0))
	return &payload, age, true
}

// Save stores a snapshot, replacing the previous one. Best-effort:
// failures are logged and swallowed.
func (c *PayloadCache) Save(payload *PortfolioPayload) {
	data, err := msgpack.Marshal(payload)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to encode payload snapshot")
		return
	}

	_, err = c.db.Exec(`
		INSERT INTO portfolio_payload (key, data, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			saved_at = excluded.saved_at
	`, payloadKey, data, time.Now().Unix())
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to save payload snapshot")
	}
}
