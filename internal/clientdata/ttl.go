package clientdata

import "time"

// TTL constants for cached data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// TTLCurrentPrice bounds how long a fetched quote substitutes for a live one.
	TTLCurrentPrice = 30 * time.Minute

	// TTLPayload bounds how long a full portfolio snapshot is served without
	// re-running the pricing pipeline.
	TTLPayload = time.Hour
)
