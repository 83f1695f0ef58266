package historical

import "github.com/aristath/wallet/internal/domain"

// AdjustForSplits returns a copy of bars with every close multiplied by the
// ratios of all strictly later splits, giving the price actually traded on the
// day. The series is walked back to front accumulating the factor; a split bar
// itself is already quoted after the split and keeps its close.
func AdjustForSplits(bars []domain.PriceBar) []domain.PriceBar {
	out := make([]domain.PriceBar, len(bars))
	factor := 1.0
	for i := len(bars) - 1; i >= 0; i-- {
		bar := bars[i]
		bar.Close *= factor
		if bar.Split > 0 {
			factor *= bar.Split
		}
		out[i] = bar
	}
	return out
}
