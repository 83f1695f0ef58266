package portfolio

import "github.com/aristath/wallet/internal/modules/accounting"

// TotalLabel labels the grand total row
const TotalLabel = "Total"

// Totals are the summed money columns of a set of asset rows
type Totals struct {
	Cost             float64 `json:"cost"`
	Wages            float64 `json:"wages"`
	LoanProceeds     float64 `json:"loan_proceeds"`
	Taxes            float64 `json:"taxes"`
	LiquidCost       float64 `json:"liquid_cost"`
	PositionTotal    float64 `json:"position_total"` // market value
	RealizedGain     float64 `json:"realized_gain"`
	UnrealizedGain   float64 `json:"unrealized_gain"`
	CapitalGain      float64 `json:"capital_gain"`
	Rentability      float64 `json:"rentability"`       // capital_gain / liquid_cost, never summed
	RelativePosition float64 `json:"relative_position"` // percent of the grand total position
}

// Group is one (currency, asset class) bucket of the consolidated portfolio
type Group struct {
	Label      string  `json:"label"`
	Currency   string  `json:"currency"` // currency of the totals
	AssetClass string  `json:"asset_class"`
	Native     string  `json:"native_currency"`
	Converted  bool    `json:"converted"`
	Rate       float64 `json:"rate"` // native to Currency
	Totals

	Assets []*accounting.AssetSummary `json:"assets,omitempty"`
}

// PortfolioSummary is the consolidated view of every asset in the ledger
type PortfolioSummary struct {
	AsOf         string   `json:"as_of"`
	BaseCurrency string   `json:"base_currency"`
	USDBRL       float64  `json:"usdbrl,omitempty"`
	Groups       []*Group `json:"groups"`
	Total        *Group   `json:"total"`
	Warnings     []string `json:"warnings,omitempty"`
}
