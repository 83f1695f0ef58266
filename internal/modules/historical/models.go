package historical

import "github.com/aristath/wallet/internal/modules/accounting"

// Point is one sampled day of an asset's performance series
type Point struct {
	Date                  string  `json:"date"`
	Close                 float64 `json:"close"`
	MA20                  float64 `json:"ma20"`
	MA100                 float64 `json:"ma100"`
	AvgPrice              float64 `json:"avg_price"`
	Position              float64 `json:"position"`
	PositionTotal         float64 `json:"position_total"`
	Cost                  float64 `json:"cost"`
	Wages                 float64 `json:"wages"`
	LiquidCost            float64 `json:"liquid_cost"`
	RealizedGain          float64 `json:"realized_gain"`
	CapitalGain           float64 `json:"capital_gain"`
	Rentability           float64 `json:"rentability"`
	AnnualizedRentability float64 `json:"annualized_rentability"`
	AgeDays               int     `json:"age_days"`
}

// History is the replayed performance series of one asset, oldest first
type History struct {
	accounting.AssetRef

	Step   int     `json:"step"`
	Bars   int     `json:"bars"` // daily bars available before sampling
	Points []Point `json:"points"`
}
