// Package classifier maps statement rows onto accounting categories and builds the
// per-asset entry streams consumed by the accounting engine.
package classifier

import (
	"math"
	"sort"
	"strings"

	"github.com/aristath/wallet/internal/domain"
)

var (
	b3BuyMovements = set("Compra", "Desdobro", "Desdobramento", "Bonificação em Ativos", "Atualização")

	b3WageMovements = set(
		"Dividendo",
		"Juros Sobre Capital Próprio",
		"Reembolso",
		"Rendimento",
		"Leilão de Fração",
		"Resgate",
	)

	b3TaxMovements  = set("Cobrança de Taxa Semestral")
	b3LoanMovements = set("Empréstimo")

	cashBuyMovements = set("Compra", "Desdobramento")
	cashTaxMovements = set("Impostos", "Corretagem")
)

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[strings.ToLower(v)] = true
	}
	return m
}

func in(m map[string]bool, movement string) bool {
	return m[strings.ToLower(strings.TrimSpace(movement))]
}

func is(movement, want string) bool {
	return strings.EqualFold(strings.TrimSpace(movement), want)
}

// Classify returns the accounting category of a transaction. It is a pure
// table lookup on (source, movement type, flow direction).
func Classify(t domain.Transaction) domain.Category {
	switch t.Source {
	case domain.SourceB3Movimentation:
		return classifyMovimentation(t)
	case domain.SourceB3Negotiation:
		return classifyNegotiation(t)
	case domain.SourceCashExtract:
		return classifyCashExtract(t)
	case domain.SourceGenericExtract:
		return classifyGeneric(t)
	}
	return domain.CategoryUnknown
}

func classifyMovimentation(t domain.Transaction) domain.Category {
	switch t.Flow {
	case domain.FlowCredit:
		switch {
		case in(b3BuyMovements, t.MovementType):
			return domain.CategoryBuy
		case in(b3WageMovements, t.MovementType):
			return domain.CategoryWage
		case in(b3LoanMovements, t.MovementType) && t.TotalValue > 0:
			return domain.CategoryLoanProceeds
		}
	case domain.FlowDebit:
		switch {
		case is(t.MovementType, "Venda"):
			return domain.CategorySell
		case in(b3TaxMovements, t.MovementType):
			return domain.CategoryTax
		}
	}
	return domain.CategoryUnknown
}

func classifyNegotiation(t domain.Transaction) domain.Category {
	switch {
	case is(t.MovementType, "Compra"):
		return domain.CategoryBuy
	case is(t.MovementType, "Venda"):
		return domain.CategorySell
	}
	return domain.CategoryUnknown
}

func classifyCashExtract(t domain.Transaction) domain.Category {
	switch t.Flow {
	case domain.FlowCredit:
		switch {
		case in(cashBuyMovements, t.MovementType):
			return domain.CategoryBuy
		case is(t.MovementType, "Dividendos"):
			return domain.CategoryWage
		}
	case domain.FlowDebit:
		switch {
		case is(t.MovementType, "Venda"):
			return domain.CategorySell
		case in(cashTaxMovements, t.MovementType):
			return domain.CategoryTax
		}
	}
	return domain.CategoryUnknown
}

func classifyGeneric(t domain.Transaction) domain.Category {
	switch strings.ToLower(strings.TrimSpace(t.MovementType)) {
	case "buy":
		return domain.CategoryBuy
	case "sell":
		return domain.CategorySell
	case "taxes":
		return domain.CategoryTax
	case "wages":
		return domain.CategoryWage
	case "":
		if t.TotalValue >= 0 {
			return domain.CategoryBuy
		}
		return domain.CategorySell
	}
	return domain.CategoryUnknown
}

// BuildStream classifies txs and folds them into one chronological stream.
// Rows from several ledgers may be mixed; each list is ordered by date, keeping
// input order for same-day rows. Rows without a usable date and rows classified
// as unknown are left out; skipped counts the undated ones.
func BuildStream(txs []domain.Transaction) (stream domain.Stream, skipped int) {
	for _, t := range txs {
		category := Classify(t)
		if category == domain.CategoryUnknown {
			continue
		}
		date, ok := t.Time()
		if !ok {
			skipped++
			continue
		}

		entry := domain.Entry{
			Date:     date,
			Quantity: t.QuantityOrZero(),
			Price:    t.UnitPriceOrZero(),
			Total:    t.TotalValue,
		}
		// cash account debits carry a sign, the engine works on magnitudes
		if t.Source == domain.SourceCashExtract {
			entry.Total = math.Abs(entry.Total)
		}

		switch category {
		case domain.CategoryBuy:
			stream.Buys = append(stream.Buys, entry)
		case domain.CategorySell:
			stream.Sells = append(stream.Sells, entry)
		case domain.CategoryTax:
			entry.Total = math.Abs(entry.Total)
			stream.Taxes = append(stream.Taxes, entry)
		case domain.CategoryWage:
			entry.Total = math.Abs(entry.Total)
			stream.Wages = append(stream.Wages, entry)
		case domain.CategoryLoanProceeds:
			stream.LoanProceeds = append(stream.LoanProceeds, entry)
		}
	}

	for _, list := range [][]domain.Entry{stream.Buys, stream.Sells, stream.Taxes, stream.Wages, stream.LoanProceeds} {
		sortByDate(list)
	}
	return stream, skipped
}

func sortByDate(entries []domain.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
}
