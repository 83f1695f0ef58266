package classifier

import (
	"regexp"
	"strings"
)

var (
	b3TickerRe = regexp.MustCompile(`^([A-Z0-9]{4}[0-9]{1,2})`)
	freeTextRe = regexp.MustCompile(`^([a-zA-Z0-9 .]+)`)
	b3StockRe  = regexp.MustCompile(`^[A-Z0-9]{4}(3|4)$`)
	b3FIIRe    = regexp.MustCompile(`^[A-Z0-9]{4}11$`)
)

// ExtractB3Ticker derives the asset identifier from a B3 product description such as
// "PETR4 - PETROLEO BRASILEIRO S.A. PETROBRAS". Text without a B3 code yields its
// leading word-like run ("Tesouro Selic 2029"); anything else yields "".
func ExtractB3Ticker(product string) string {
	product = strings.TrimSpace(product)
	if m := b3TickerRe.FindStringSubmatch(product); m != nil {
		return m[1]
	}
	if m := freeTextRe.FindStringSubmatch(product); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// IsB3StockTicker reports whether ticker is an ordinary or preferred B3 share code.
func IsB3StockTicker(ticker string) bool {
	return b3StockRe.MatchString(ticker)
}

// IsB3FIITicker reports whether ticker is a B3 real-estate fund (FII) code.
func IsB3FIITicker(ticker string) bool {
	return b3FIIRe.MatchString(ticker)
}

