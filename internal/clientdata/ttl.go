package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Security metadata rarely changes (fund attributes, sector, country).
	TTLSecurityMetadata = 30 * 24 * time.Hour

	// Current prices go stale within minutes while a market is open.
	// The in-memory price cache applies session-aware rules on top of this.
	TTLCurrentPrice = 5 * time.Minute
)
