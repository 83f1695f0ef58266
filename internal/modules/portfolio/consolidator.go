package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/modules/accounting"
	"github.com/aristath/wallet/internal/utils"
	"github.com/rs/zerolog"
)

// Consolidator builds the grouped view of every asset in the ledger
type Consolidator struct {
	assets *AssetService
	fx     domain.FXRateProvider
	base   string
	log    zerolog.Logger
}

// NewConsolidator creates a new consolidator reporting in baseCurrency
func NewConsolidator(assets *AssetService, fx domain.FXRateProvider, baseCurrency string, log zerolog.Logger) *Consolidator {
	if baseCurrency == "" {
		baseCurrency = "BRL"
	}
	return &Consolidator{
		assets: assets,
		fx:     fx,
		base:   strings.ToUpper(baseCurrency),
		log:    log.With().Str("service", "consolidator").Logger(),
	}
}

type groupKey struct {
	currency string
	class    string
}

// ConsolidateAll runs the engine once per distinct ticker, over the rows carrying
// exactly that ticker, and groups the results by (currency, asset class). Groups in a foreign currency are converted into the
// base currency; when no rate is available they stay native and are left out of
// the grand total. A failing asset is skipped with a warning.
func (c *Consolidator) ConsolidateAll(ctx context.Context) (*PortfolioSummary, error) {
	defer utils.OperationTimer("consolidate_all", c.log)()

	asOf := c.assets.now()
	summary := &PortfolioSummary{
		AsOf:         asOf.Format(domain.DateLayout),
		BaseCurrency: c.base,
	}

	grouped := make(map[groupKey][]*accounting.AssetSummary)
	var order []groupKey

	for _, source := range domain.AllAssetSources {
		names, err := c.assets.ListAssets(ctx, source)
		if err != nil {
			return nil, err
		}

		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			data, err := c.assets.LoadTicker(ctx, source, name)
			if err != nil {
				c.log.Warn().Err(err).Str("source", string(source)).Str("asset", name).Msg("Skipping asset")
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s/%s skipped: %v", source, name, err))
				continue
			}

			row := c.assets.engine.Consolidate(ctx, data.Ref, data.Stream, asOf, nil)
			key := groupKey{currency: strings.ToUpper(row.Currency), class: row.AssetClass}
			if key.currency == "" {
				key.currency = c.base
			}
			if _, ok := grouped[key]; !ok {
				order = append(order, key)
			}
			grouped[key] = append(grouped[key], row)
		}
	}

	rates := make(map[string]float64)
	total := &Group{Label: TotalLabel, Currency: c.base, Native: c.base, Rate: 1}

	for _, key := range order {
		group := &Group{
			Label:      key.class,
			Currency:   key.currency,
			AssetClass: key.class,
			Native:     key.currency,
			Rate:       1,
			Assets:     grouped[key],
		}

		included := true
		if key.currency != c.base {
			group.Label = fmt.Sprintf("%s (%s)", key.class, key.currency)
			rate, err := c.conversionRate(key.currency, rates)
			if err != nil {
				c.log.Warn().Err(err).Str("group", group.Label).Msg("No exchange rate, group kept in native currency")
				summary.Warnings = append(summary.Warnings,
					fmt.Sprintf("%s not converted to %s: %v", group.Label, c.base, err))
				included = false
			} else {
				group.Currency = c.base
				group.Rate = rate
				group.Converted = true
			}
		}

		for _, row := range group.Assets {
			group.add(row, group.Rate)
		}
		group.Rentability = rentability(group.CapitalGain, group.LiquidCost)

		sort.SliceStable(group.Assets, func(i, j int) bool {
			a, b := group.Assets[i], group.Assets[j]
			if a.Rentability != b.Rentability {
				return a.Rentability > b.Rentability
			}
			return a.Name < b.Name
		})

		if included {
			total.addTotals(group.Totals)
		}
		summary.Groups = append(summary.Groups, group)
	}

	total.Rentability = rentability(total.CapitalGain, total.LiquidCost)
	for _, group := range summary.Groups {
		if group.Currency == c.base {
			group.RelativePosition = 100 * utils.SafeDiv(group.PositionTotal, total.PositionTotal)
		}
	}
	if len(summary.Groups) > 0 && total.PositionTotal != 0 {
		total.RelativePosition = 100
	}
	summary.Total = total

	sort.SliceStable(summary.Groups, func(i, j int) bool {
		a, b := summary.Groups[i], summary.Groups[j]
		if a.PositionTotal != b.PositionTotal {
			return a.PositionTotal > b.PositionTotal
		}
		return a.Label < b.Label
	})

	if c.base == "BRL" {
		if usdbrl, err := c.conversionRate("USD", rates); err == nil {
			summary.USDBRL = usdbrl
		}
	}

	c.log.Info().
		Int("groups", len(summary.Groups)).
		Float64("position_total", total.PositionTotal).
		Int("warnings", len(summary.Warnings)).
		Msg("Portfolio consolidated")

	return summary, nil
}

// conversionRate returns how many base units one unit of currency is worth,
// memoized in rates for the duration of a pass.
func (c *Consolidator) conversionRate(currency string, rates map[string]float64) (float64, error) {
	if currency == c.base {
		return 1, nil
	}
	if r, ok := rates[currency]; ok {
		return r, nil
	}
	if c.fx == nil {
		return 0, fmt.Errorf("no exchange rate provider")
	}

	baseRate, err := c.fx.GetRate(c.base)
	if err != nil {
		return 0, err
	}
	quoteRate, err := c.fx.GetRate(currency)
	if err != nil {
		return 0, err
	}
	if baseRate <= 0 || quoteRate <= 0 {
		return 0, fmt.Errorf("invalid rate for %s/%s", currency, c.base)
	}

	r := baseRate / quoteRate
	rates[currency] = r
	return r, nil
}

func (g *Group) add(row *accounting.AssetSummary, rate float64) {
	g.Cost += row.Cost * rate
	g.Wages += row.Wages * rate
	g.LoanProceeds += row.LoanProceeds * rate
	g.Taxes += row.Taxes * rate
	g.LiquidCost += row.LiquidCost * rate
	g.PositionTotal += row.PositionTotal * rate
	g.RealizedGain += row.RealizedGain * rate
	g.UnrealizedGain += row.UnrealizedGain * rate
	g.CapitalGain += row.CapitalGain * rate
}

func (g *Group) addTotals(t Totals) {
	g.Cost += t.Cost
	g.Wages += t.Wages
	g.LoanProceeds += t.LoanProceeds
	g.Taxes += t.Taxes
	g.LiquidCost += t.LiquidCost
	g.PositionTotal += t.PositionTotal
	g.RealizedGain += t.RealizedGain
	g.UnrealizedGain += t.UnrealizedGain
	g.CapitalGain += t.CapitalGain
}

func rentability(capitalGain, liquidCost float64) float64 {
	if liquidCost <= 0 {
		return 0
	}
	return utils.SafeDiv(capitalGain, liquidCost)
}
