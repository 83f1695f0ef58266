package domain

import (
	"context"
	"time"
)

// PriceOracle resolves market prices and metadata for tickers
type PriceOracle interface {
	// GetQuote returns the most recent close with currency and asset class
	GetQuote(ctx context.Context, ticker string) (*Quote, error)

	// GetHistory returns daily closes between start and end, oldest first. Closes are
	// split-adjusted; each split ratio is marked on the bar it takes effect
	GetHistory(ctx context.Context, ticker string, start, end time.Time) ([]PriceBar, error)
}

// FXRateProvider returns USD-based exchange rates: 1 USD = rate units of the quote currency
type FXRateProvider interface {
	GetRate(quoteCurrency string) (float64, error)
}
