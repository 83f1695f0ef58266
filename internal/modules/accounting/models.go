// Package accounting implements weighted-average-cost lot accounting for a
// single asset: position, realized and unrealized gains, rentability.
package accounting

import "github.com/aristath/wallet/internal/domain"

// Asset classes assigned without a price lookup
const (
	AssetClassSold    = "Sold"
	AssetClassUnknown = "Unknown"
)

// AssetRef identifies the asset being consolidated
type AssetRef struct {
	Name     string             `json:"name"`   // Identifier the user asked for
	Source   domain.AssetSource `json:"source"` // Lookup namespace
	Ticker   string             `json:"ticker"` // Identifier sent to the price oracle
	Currency string             `json:"currency"`
}

// RealizedGain is the gain booked by one sale against the average cost of the
// buys dated on or before it
type RealizedGain struct {
	SaleDate          string  `json:"sale_date"`
	Quantity          float64 `json:"quantity"`
	SalePrice         float64 `json:"sale_price"`
	AverageCostAtSale float64 `json:"average_cost_at_sale"`
	Gain              float64 `json:"gain"`
}

// AssetSummary is the consolidated position and performance of one asset
type AssetSummary struct {
	AssetRef

	Symbol     string `json:"symbol,omitempty"`
	LongName   string `json:"long_name,omitempty"`
	AssetClass string `json:"asset_class"`
	AsOf       string `json:"as_of"`
	FirstBuy   string `json:"first_buy,omitempty"`
	LastSell   string `json:"last_sell,omitempty"`

	BuyQuantity  float64 `json:"buy_quantity"`
	SellQuantity float64 `json:"sell_quantity"`
	Position     float64 `json:"position"`
	Cost         float64 `json:"cost"`
	AvgPrice     float64 `json:"avg_price"`
	BuysTotal    float64 `json:"buys_total"`
	SellsTotal   float64 `json:"sells_total"`
	Taxes        float64 `json:"taxes"`
	Wages        float64 `json:"wages"`
	LoanProceeds float64 `json:"loan_proceeds"`
	LiquidCost   float64 `json:"liquid_cost"`

	LastClosePrice float64 `json:"last_close_price"`
	PriceAvailable bool    `json:"price_available"`
	PositionTotal  float64 `json:"position_total"`
	PriceGain      float64 `json:"price_gain"`

	RealizedGain          float64 `json:"realized_gain"`
	UnrealizedGain        float64 `json:"unrealized_gain"`
	CapitalGain           float64 `json:"capital_gain"`
	Rentability           float64 `json:"rentability"`
	AnnualizedRentability float64 `json:"annualized_rentability"`
	AgeDays               int     `json:"age_days"`
	AgeYears              float64 `json:"age_years"`

	Sales []RealizedGain `json:"sales"`
}

// Held reports whether shares are still held at the as-of date
func (s *AssetSummary) Held() bool {
	return s.Position > 0
}
