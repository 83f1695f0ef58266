package ledger

import (
	"database/sql"
	"fmt"

	"github.com/aristath/wallet/internal/domain"
)

// tableLayout describes how one source is laid out in ledger.db
type tableLayout struct {
	table    string
	columns  []string // data columns, in insert order
	identity []string // columns that, with origin_id, identify a statement row
}

var tableLayouts = map[domain.Source]tableLayout{
	domain.SourceB3Movimentation: {
		table:    "b3_movimentation",
		columns:  []string{"date", "flow", "movement_type", "asset", "ticker", "institution", "quantity", "unit_price", "total_value"},
		identity: []string{"flow", "date", "movement_type", "asset", "institution", "quantity"},
	},
	domain.SourceB3Negotiation: {
		table:    "b3_negotiation",
		columns:  []string{"date", "movement_type", "market", "settlement_term", "institution", "asset", "ticker", "quantity", "unit_price", "total_value"},
		identity: []string{"date", "movement_type", "market", "settlement_term", "institution", "asset", "quantity", "unit_price", "total_value"},
	},
	domain.SourceCashExtract: {
		table:    "cash_extract",
		columns:  []string{"date", "time_of_day", "settlement_date", "description", "flow", "movement_type", "asset", "ticker", "quantity", "unit_price", "total_value", "balance"},
		identity: []string{"date", "time_of_day", "settlement_date", "description", "total_value", "balance"},
	},
	domain.SourceGenericExtract: {
		table:    "generic_extract",
		columns:  []string{"date", "asset", "ticker", "movement_type", "quantity", "unit_price", "total_value"},
		identity: []string{"date", "asset", "movement_type", "quantity", "unit_price", "total_value"},
	},
}

var numericColumns = map[string]bool{
	"quantity":    true,
	"unit_price":  true,
	"total_value": true,
	"balance":     true,
}

func layoutFor(source domain.Source) (tableLayout, error) {
	layout, ok := tableLayouts[source]
	if !ok {
		return tableLayout{}, fmt.Errorf("unknown transaction source: %q", source)
	}
	return layout, nil
}

func (s tableLayout) hasColumn(col string) bool {
	for _, c := range s.columns {
		if c == col {
			return true
		}
	}
	return false
}

// value returns the value bound for col when writing t.
func value(t *domain.Transaction, col string) interface{} {
	switch col {
	case "date":
		return t.Date
	case "flow":
		return string(t.Flow)
	case "movement_type":
		return t.MovementType
	case "asset":
		return t.Asset
	case "ticker":
		return t.Ticker
	case "institution":
		return t.Institution
	case "market":
		return t.Market
	case "settlement_term":
		return t.SettlementTerm
	case "quantity":
		return nullable(t.Quantity)
	case "unit_price":
		return nullable(t.UnitPrice)
	case "total_value":
		return t.TotalValue
	case "description":
		return t.Description
	case "time_of_day":
		return t.TimeOfDay
	case "settlement_date":
		return t.SettlementDate
	case "balance":
		return t.Balance
	}
	return nil
}

func nullable(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// scanner collects scan destinations for one row and copies them into a Transaction.
type scanner struct {
	flow      string
	quantity  sql.NullFloat64
	unitPrice sql.NullFloat64
}

func (sc *scanner) dest(t *domain.Transaction, col string) interface{} {
	switch col {
	case "date":
		return &t.Date
	case "flow":
		return &sc.flow
	case "movement_type":
		return &t.MovementType
	case "asset":
		return &t.Asset
	case "ticker":
		return &t.Ticker
	case "institution":
		return &t.Institution
	case "market":
		return &t.Market
	case "settlement_term":
		return &t.SettlementTerm
	case "quantity":
		return &sc.quantity
	case "unit_price":
		return &sc.unitPrice
	case "total_value":
		return &t.TotalValue
	case "description":
		return &t.Description
	case "time_of_day":
		return &t.TimeOfDay
	case "settlement_date":
		return &t.SettlementDate
	case "balance":
		return &t.Balance
	}
	return new(interface{})
}

func (sc *scanner) apply(t *domain.Transaction) {
	t.Flow = domain.FlowDirection(sc.flow)
	if sc.quantity.Valid {
		q := sc.quantity.Float64
		t.Quantity = &q
	}
	if sc.unitPrice.Valid {
		p := sc.unitPrice.Float64
		t.UnitPrice = &p
	}
}
