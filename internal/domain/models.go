// Package domain provides core domain models and types.
package domain

import "time"

// DateLayout is the canonical storage layout of transaction dates
const DateLayout = "2006-01-02"

// Source identifies the statement a transaction was imported from.
// Each source is persisted in its own ledger table.
type Source string

const (
	// SourceB3Movimentation is the B3 custody movement statement
	SourceB3Movimentation Source = "b3_movimentation"
	// SourceB3Negotiation is the B3 trade (negotiation) statement
	SourceB3Negotiation Source = "b3_negotiation"
	// SourceCashExtract is a foreign broker cash account statement (Avenue)
	SourceCashExtract Source = "cash_extract"
	// SourceGenericExtract is the free-form Date/Asset/Movimentation statement
	SourceGenericExtract Source = "generic_extract"
)

// AllSources lists every importable source
var AllSources = []Source{
	SourceB3Movimentation,
	SourceB3Negotiation,
	SourceCashExtract,
	SourceGenericExtract,
}

// Valid reports whether s is a known source
func (s Source) Valid() bool {
	for _, known := range AllSources {
		if s == known {
			return true
		}
	}
	return false
}

// AssetSource is the namespace an asset is looked up in.
// The B3 namespace spans both B3 ledgers.
type AssetSource string

const (
	AssetSourceB3      AssetSource = "b3"
	AssetSourceAvenue  AssetSource = "avenue"
	AssetSourceGeneric AssetSource = "generic"
)

// AllAssetSources lists the lookup namespaces in consolidation order
var AllAssetSources = []AssetSource{AssetSourceB3, AssetSourceAvenue, AssetSourceGeneric}

// Valid reports whether a is a known lookup namespace
func (a AssetSource) Valid() bool {
	return a == AssetSourceB3 || a == AssetSourceAvenue || a == AssetSourceGeneric
}

// FlowDirection is the credit/debit marker of a statement row
type FlowDirection string

const (
	FlowCredit FlowDirection = "Credito"
	FlowDebit  FlowDirection = "Debito"
	FlowNone   FlowDirection = ""
)

// Category is the accounting meaning of a transaction
type Category string

const (
	CategoryBuy          Category = "buy"
	CategorySell         Category = "sell"
	CategoryTax          Category = "tax"
	CategoryWage         Category = "wage"
	CategoryLoanProceeds Category = "loan_proceeds"
	CategoryUnknown      Category = "unknown"
)

// Transaction is the canonical, immutable record of one statement row.
// Quantity and UnitPrice are nil when the source row does not state them.
type Transaction struct {
	ID             int64         `json:"id"`
	Source         Source        `json:"source"`
	OriginID       string        `json:"origin_id"`
	ImportBatch    string        `json:"import_batch"`
	Date           string        `json:"date"` // DateLayout, empty when unparseable
	Flow           FlowDirection `json:"flow,omitempty"`
	MovementType   string        `json:"movement_type"`
	Asset          string        `json:"asset"`
	Ticker         string        `json:"ticker"`
	Institution    string        `json:"institution,omitempty"`
	Market         string        `json:"market,omitempty"`
	SettlementTerm string        `json:"settlement_term,omitempty"`
	Quantity       *float64      `json:"quantity"`
	UnitPrice      *float64      `json:"unit_price"`
	TotalValue     float64       `json:"total_value"`
	Description    string        `json:"description,omitempty"`
	TimeOfDay      string        `json:"time_of_day,omitempty"`
	SettlementDate string        `json:"settlement_date,omitempty"`
	Balance        float64       `json:"balance,omitempty"`
}

// QuantityOrZero returns the stated quantity or 0 when unknown
func (t Transaction) QuantityOrZero() float64 {
	if t.Quantity == nil {
		return 0
	}
	return *t.Quantity
}

// UnitPriceOrZero returns the stated unit price or 0 when unknown
func (t Transaction) UnitPriceOrZero() float64 {
	if t.UnitPrice == nil {
		return 0
	}
	return *t.UnitPrice
}

// Time parses the transaction date. ok is false for empty or malformed dates.
func (t Transaction) Time() (time.Time, bool) {
	if t.Date == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// Entry is one classified movement fed to the accounting engine
type Entry struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
	Price    float64   `json:"price"`
	Total    float64   `json:"total"`
}

// Stream holds the chronologically ordered categorized entries of one asset
type Stream struct {
	Buys         []Entry `json:"buys"`
	Sells        []Entry `json:"sells"`
	Taxes        []Entry `json:"taxes"`
	Wages        []Entry `json:"wages"`
	LoanProceeds []Entry `json:"loan_proceeds"`
}

// Empty reports whether the stream holds no entries at all
func (s Stream) Empty() bool {
	return len(s.Buys)+len(s.Sells)+len(s.Taxes)+len(s.Wages)+len(s.LoanProceeds) == 0
}

// Quote is the price oracle answer for one ticker
type Quote struct {
	Ticker     string  `json:"ticker"`
	Symbol     string  `json:"symbol"` // Provider symbol actually queried
	LongName   string  `json:"long_name"`
	LastClose  float64 `json:"last_close"`
	Currency   string  `json:"currency"`
	AssetClass string  `json:"asset_class"`
}

// PriceBar is one daily close of the oracle history.
// Split is the split ratio effective on that day, 0 when none.
type PriceBar struct {
	Date  time.Time `json:"date" msgpack:"d"`
	Close float64   `json:"close" msgpack:"c"`
	Split float64   `json:"split,omitempty" msgpack:"s"`
}
