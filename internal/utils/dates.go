package utils

import (
	"strings"
	"time"
)

// Statement date layouts
const (
	BrazilianDateLayout = "02/01/2006"
	ISODateLayout       = "2006-01-02"
)

// NormalizeDate parses value with layout and returns it in ISO form.
// Returns "" when the value cannot be parsed.
func NormalizeDate(value, layout string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	// spreadsheet exports sometimes append a midnight time
	if i := strings.IndexByte(value, ' '); i > 0 {
		value = value[:i]
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return ""
	}
	return t.Format(ISODateLayout)
}

// WholeDaysBetween returns the number of complete days from start to end.
func WholeDaysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

