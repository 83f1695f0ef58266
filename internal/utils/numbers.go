package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// brThousandsRe matches integers written with '.' thousands groups, such as "1.000"
var brThousandsRe = regexp.MustCompile(`^-?[1-9][0-9]{0,2}(\.[0-9]{3})+$`)

// Round rounds x half away from zero to the given number of decimal places.
// NaN and infinities are returned unchanged.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

// BRLToFloat parses a Brazilian formatted amount such as "R$ 1.234,56".
// The thousands separator is '.', the decimal separator is ','.
func BRLToFloat(value string) (float64, bool) {
	s := strings.TrimSpace(value)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// ParseNumber coerces a statement cell into a number. Dot-grouped integers
// ("1.000", "12.345.678") are read as Brazilian thousands; other plain numeric
// text is tried next, then the Brazilian format. ok is false when the cell is
// not numeric, in which case 0 is returned.
func ParseNumber(value string) (float64, bool) {
	s := strings.TrimSpace(value)
	if s == "" || s == "-" {
		return 0, false
	}
	if brThousandsRe.MatchString(s) {
		return BRLToFloat(s)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, true
	}
	if strings.Contains(s, ",") || strings.HasPrefix(s, "R$") {
		return BRLToFloat(s)
	}
	return 0, false
}

// SafeDiv returns num/den, or 0 when den is 0 or the result is not finite.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
