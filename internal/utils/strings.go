package utils

import "strings"

// MostFrequent returns the most common non-blank value, preferring the one seen
// first on ties. Returns "" when every value is blank.
func MostFrequent(values []string) string {
	counts := make(map[string]int, len(values))
	best := ""
	bestCount := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		counts[v]++
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}
