// Package formulas provides technical indicators over price series.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// MovingAverages returns the simple moving average of closes over length,
// aligned with closes. Points without a full window are 0.
func MovingAverages(closes []float64, length int) []float64 {
	out := make([]float64, len(closes))
	if length < 1 || len(closes) < length {
		return out
	}

	sma := talib.Sma(closes, length)
	for i := length - 1; i < len(sma) && i < len(out); i++ {
		if !isNaN(sma[i]) {
			out[i] = sma[i]
		}
	}
	return out
}

func isNaN(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
