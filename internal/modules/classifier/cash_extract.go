package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aristath/wallet/internal/domain"
)

// UnknownMovement marks cash-extract rows whose description names no known movement
const UnknownMovement = "???"

var (
	cashCreditRe   = regexp.MustCompile(`^(Câmbio Instantâneo|Câmbio Padrão|Compra|Dividendos|Estorno|Desdobramento)`)
	cashMovementRe = regexp.MustCompile(`Câmbio|Compra|Venda|Impostos|Dividendos|Corretagem|Desdobramento`)
	cashTickerRe   = regexp.MustCompile(`(Compra de [0-9.]+|Venda de [0-9.]+|Dividendos|Corretagem) ([A-Z]{1,5})\b`)
	cashQuantityRe = regexp.MustCompile(`(?:Compra|Venda) de ([0-9.]+)`)
	cashPriceRe    = regexp.MustCompile(`\$ ?([0-9.]+)`)
)

// CashDescription is what can be read out of a free-text cash-extract description
type CashDescription struct {
	Flow     domain.FlowDirection
	Movement string
	Ticker   string
	Quantity *float64
	Price    *float64
}

// ParseCashDescription extracts flow, movement, ticker, quantity and price from a
// description like "Compra de 2 AAPL a $ 150.00". Missing parts stay empty or nil.
func ParseCashDescription(description string) CashDescription {
	description = strings.TrimSpace(description)

	out := CashDescription{Flow: domain.FlowDebit, Movement: UnknownMovement}
	if cashCreditRe.MatchString(description) {
		out.Flow = domain.FlowCredit
	}
	if m := cashMovementRe.FindString(description); m != "" {
		out.Movement = m
	}
	if m := cashTickerRe.FindStringSubmatch(description); m != nil {
		out.Ticker = m[2]
	}
	if m := cashQuantityRe.FindStringSubmatch(description); m != nil {
		out.Quantity = parseLooseFloat(m[1])
	}
	if m := cashPriceRe.FindStringSubmatch(description); m != nil {
		out.Price = parseLooseFloat(m[1])
	}
	return out
}

// parseLooseFloat parses a captured number, tolerating a sentence-ending period.
func parseLooseFloat(s string) *float64 {
	s = strings.TrimRight(s, ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
