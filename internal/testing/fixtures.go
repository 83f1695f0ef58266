package testing

import (
	"time"

	"github.com/aristath/wallet/internal/domain"
)

// Float returns a pointer to v, for optional transaction fields.
func Float(v float64) *float64 {
	return &v
}

// Date parses an ISO date and panics on malformed input. Test use only.
func Date(value string) time.Time {
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		panic(err)
	}
	return t
}

// Entry builds an engine entry dated at an ISO date.
func Entry(date string, quantity, price, total float64) domain.Entry {
	return domain.Entry{Date: Date(date), Quantity: quantity, Price: price, Total: total}
}

// Buy builds a buy entry whose total is quantity × price.
func Buy(date string, quantity, price float64) domain.Entry {
	return Entry(date, quantity, price, quantity*price)
}

// Sell builds a sell entry whose total is quantity × price.
func Sell(date string, quantity, price float64) domain.Entry {
	return Entry(date, quantity, price, quantity*price)
}

// Movimentation builds a B3 movement ledger row.
func Movimentation(date string, flow domain.FlowDirection, movement, product string, quantity, price, total float64) domain.Transaction {
	return domain.Transaction{
		Source:       domain.SourceB3Movimentation,
		Date:         date,
		Flow:         flow,
		MovementType: movement,
		Asset:        product,
		Institution:  "XP INVESTIMENTOS CCTVM S/A",
		Quantity:     Float(quantity),
		UnitPrice:    Float(price),
		TotalValue:   total,
	}
}

// Negotiation builds a B3 trade ledger row.
func Negotiation(date, movement, code string, quantity, price float64) domain.Transaction {
	return domain.Transaction{
		Source:       domain.SourceB3Negotiation,
		Date:         date,
		MovementType: movement,
		Market:       "Mercado à Vista",
		Institution:  "XP INVESTIMENTOS CCTVM S/A",
		Asset:        code,
		Quantity:     Float(quantity),
		UnitPrice:    Float(price),
		TotalValue:   quantity * price,
	}
}
