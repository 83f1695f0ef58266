package yahoo

// Quote is the instrument metadata returned alongside a chart request
type Quote struct {
	Symbol        string  `json:"symbol"`
	LongName      string  `json:"long_name"`
	ShortName     string  `json:"short_name"`
	Currency      string  `json:"currency"`
	QuoteType     string  `json:"quote_type"`
	LastClose     float64 `json:"last_close"`
	PreviousClose float64 `json:"previous_close"`
}

// Name returns the long name, falling back to the short name and then the symbol
func (q *Quote) Name() string {
	if q.LongName != "" {
		return q.LongName
	}
	if q.ShortName != "" {
		return q.ShortName
	}
	return q.Symbol
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		InstrumentType     string  `json:"instrumentType"`
		LongName           string  `json:"longName"`
		ShortName          string  `json:"shortName"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
	} `json:"meta"`
	Timestamp []int64 `json:"timestamp"`
	Events    struct {
		Splits map[string]chartSplit `json:"splits"`
	} `json:"events"`
	Indicators struct {
		Quote []struct {
			// Yahoo reports missing sessions as null
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartSplit struct {
	Date        int64   `json:"date"`
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
}

func (s chartSplit) ratio() float64 {
	if s.Numerator <= 0 || s.Denominator <= 0 {
		return 0
	}
	return s.Numerator / s.Denominator
}
