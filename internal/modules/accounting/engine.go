package accounting

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/utils"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// sharePrecision is the number of decimals kept on share counts, absorbing
// float noise from fractional buys and sells
const sharePrecision = 8

// Engine consolidates classified entry streams into asset summaries
type Engine struct {
	oracle    domain.PriceOracle
	blacklist map[string]bool
	log       zerolog.Logger
}

// NewEngine creates an engine. Tickers in blacklist are never priced.
func NewEngine(oracle domain.PriceOracle, blacklist []string, log zerolog.Logger) *Engine {
	bl := make(map[string]bool, len(blacklist))
	for _, t := range blacklist {
		bl[strings.ToUpper(strings.TrimSpace(t))] = true
	}
	return &Engine{
		oracle:    oracle,
		blacklist: bl,
		log:       log.With().Str("service", "accounting").Logger(),
	}
}

// Consolidate computes the summary of ref as of asOf. Only entries dated on or
// before asOf count. When overridePrice is set it is used as the market price and
// the oracle is not consulted; otherwise the oracle is asked only while shares
// are still held. A failing oracle leaves the price at zero.
func (e *Engine) Consolidate(
	ctx context.Context,
	ref AssetRef,
	stream domain.Stream,
	asOf time.Time,
	overridePrice *float64,
) *AssetSummary {
	s := Compute(ref, stream, asOf)

	if !s.Held() {
		s.AssetClass = AssetClassSold
		s.finalize(0)
		return s
	}

	if overridePrice != nil {
		s.PriceAvailable = true
		s.finalize(*overridePrice)
		return s
	}

	s.finalize(e.lookupPrice(ctx, s))
	return s
}

func (e *Engine) lookupPrice(ctx context.Context, s *AssetSummary) float64 {
	s.AssetClass = AssetClassUnknown

	ticker := strings.ToUpper(strings.TrimSpace(s.Ticker))
	if ticker == "" || e.blacklist[ticker] || e.oracle == nil {
		e.log.Debug().Str("ticker", s.Ticker).Msg("Skipping price lookup")
		return 0
	}

	quote, err := e.oracle.GetQuote(ctx, s.Ticker)
	if err != nil {
		e.log.Warn().Err(err).Str("ticker", s.Ticker).Msg("Price lookup failed, continuing without price")
		return 0
	}

	s.PriceAvailable = true
	s.Symbol = quote.Symbol
	s.LongName = quote.LongName
	if quote.AssetClass != "" {
		s.AssetClass = quote.AssetClass
	}
	if quote.Currency != "" {
		s.Currency = strings.ToUpper(quote.Currency)
	}
	return quote.LastClose
}

// Compute runs the price-independent part of the consolidation: filtering by
// asOf, share count, holding age, cash flow sums, and the running weighted
// average cost with the realized gain of each sale. A sale is measured against
// the average of the lot as it stood on its own date, never the final one.
// Market dependent fields are left zero.
func Compute(ref AssetRef, stream domain.Stream, asOf time.Time) *AssetSummary {
	buys := until(stream.Buys, asOf)
	sells := until(stream.Sells, asOf)
	taxes := until(stream.Taxes, asOf)
	wages := until(stream.Wages, asOf)
	loans := until(stream.LoanProceeds, asOf)

	s := &AssetSummary{
		AssetRef: ref,
		AsOf:     asOf.Format(domain.DateLayout),
	}

	buyQty := quantities(buys)
	s.BuyQuantity = floats.Sum(buyQty)
	s.SellQuantity = math.Abs(floats.Sum(quantities(sells)))
	s.Position = utils.Round(s.BuyQuantity-s.SellQuantity, sharePrecision)

	lastSell := asOf
	if s.Position <= 0 && len(sells) > 0 {
		lastSell = sells[len(sells)-1].Date
		s.LastSell = lastSell.Format(domain.DateLayout)
	}
	if len(buys) > 0 {
		firstBuy := buys[0].Date
		s.FirstBuy = firstBuy.Format(domain.DateLayout)
		if days := utils.WholeDaysBetween(firstBuy, lastSell); days > 0 {
			s.AgeDays = days
			s.AgeYears = float64(days) / 365
		}
	}

	s.Cost = floats.Dot(buyQty, prices(buys))
	s.BuysTotal = floats.Sum(totals(buys))
	s.SellsTotal = math.Abs(floats.Sum(totals(sells)))
	s.Taxes = floats.Sum(totals(taxes))
	s.Wages = floats.Sum(totals(wages))
	s.LoanProceeds = floats.Sum(totals(loans))
	s.LiquidCost = s.Cost - s.Wages - s.LoanProceeds + s.Taxes

	gains, final := replayLots(buys, sells)
	s.Sales = gains
	for _, g := range gains {
		s.RealizedGain += g.Gain
	}
	s.AvgPrice = final.avg

	return s
}

// finalize fills the market dependent fields for price.
func (s *AssetSummary) finalize(price float64) {
	if s.Held() {
		s.LastClosePrice = price
		s.UnrealizedGain = (price - s.AvgPrice) * s.Position
		s.PositionTotal = s.Position * price
		if s.AvgPrice > 0 {
			s.PriceGain = 100 * (price/s.AvgPrice - 1)
		}
	} else {
		s.PriceGain = -100
	}

	s.CapitalGain = s.RealizedGain + s.UnrealizedGain + s.Wages + s.LoanProceeds

	if s.LiquidCost > 0 {
		s.Rentability = utils.SafeDiv(s.CapitalGain, s.LiquidCost)
	}
	s.AnnualizedRentability = Annualize(s.Rentability, s.AgeYears)
}

// Annualize converts a total return earned over years into a yearly rate.
// A total loss (or worse) annualizes to -1; non-positive ages and
// non-finite results give 0.
func Annualize(rentability, years float64) float64 {
	if years <= 0 {
		return 0
	}
	base := 1 + rentability
	if base <= 0 {
		return -1
	}
	r := math.Pow(base, 1/years) - 1
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// until returns the entries dated on or before t, in date order.
func until(entries []domain.Entry, t time.Time) []domain.Entry {
	out := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Date.After(t) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func quantities(entries []domain.Entry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.Quantity
	}
	return out
}

func prices(entries []domain.Entry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.Price
	}
	return out
}

func totals(entries []domain.Entry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.Total
	}
	return out
}
