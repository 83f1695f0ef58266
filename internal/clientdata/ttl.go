package clientdata

import "time"

// TTL defaults added to time.Now() when storing to calculate expires_at.
// Quote and history expiry is configurable (PRICE_CACHE_TTL); these apply to
// the remaining providers.
const (
	TTLExchangeRate = 4 * time.Hour
	TTLFixedIncome  = 12 * time.Hour
	TTLQuote        = 4 * time.Hour
)
