// Package historical replays the accounting engine over an asset's price history.
package historical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/modules/accounting"
	"github.com/aristath/wallet/internal/modules/portfolio"
	"github.com/aristath/wallet/internal/utils"
	"github.com/aristath/wallet/pkg/formulas"
	"github.com/rs/zerolog"
)

// DefaultStep is the sampling interval, in bars, used when none is given
const DefaultStep = 5

// ErrNoHistory is returned when an asset cannot be replayed
var ErrNoHistory = errors.New("no price history")

// AssetLoader loads the classified ledger data of one asset
type AssetLoader interface {
	LoadAsset(ctx context.Context, source domain.AssetSource, asset string) (*portfolio.AssetData, error)
}

// Replayer rebuilds an asset's performance series day by day
type Replayer struct {
	assets      AssetLoader
	oracle      domain.PriceOracle
	engine      portfolio.Engine
	defaultStep int
	now         func() time.Time
	log         zerolog.Logger
}

// NewReplayer creates a new replayer. defaultStep <= 0 falls back to DefaultStep.
func NewReplayer(assets AssetLoader, oracle domain.PriceOracle, engine portfolio.Engine, defaultStep int, log zerolog.Logger) *Replayer {
	if defaultStep <= 0 {
		defaultStep = DefaultStep
	}
	return &Replayer{
		assets:      assets,
		oracle:      oracle,
		engine:      engine,
		defaultStep: defaultStep,
		now:         time.Now,
		log:         log.With().Str("service", "replayer").Logger(),
	}
}

// Replay fetches daily closes from the first buy until now, restores traded
// prices across splits and re-runs the engine on every step-th bar with that
// bar's date as cut-off and its close as price.
func (r *Replayer) Replay(ctx context.Context, source domain.AssetSource, asset string, step int) (*History, error) {
	defer utils.OperationTimer("replay", r.log)()

	if step <= 0 {
		step = r.defaultStep
	}

	data, err := r.assets.LoadAsset(ctx, source, asset)
	if err != nil {
		return nil, err
	}
	if len(data.Stream.Buys) == 0 {
		return nil, fmt.Errorf("%w: %s never bought", ErrNoHistory, asset)
	}

	start := data.Stream.Buys[0].Date
	bars, err := r.oracle.GetHistory(ctx, data.Ref.Ticker, start, r.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoHistory, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", ErrNoHistory, data.Ref.Ticker)
	}

	bars = AdjustForSplits(bars)
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	ma20 := formulas.MovingAverages(closes, 20)
	ma100 := formulas.MovingAverages(closes, 100)

	history := &History{
		AssetRef: data.Ref,
		Step:     step,
		Bars:     len(bars),
		Points:   make([]Point, 0, len(bars)/step+1),
	}

	for i := 0; i < len(bars); i += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bar := bars[i]
		price := utils.Round(bar.Close, 2)
		s := r.engine.Consolidate(ctx, data.Ref, data.Stream, bar.Date, &price)
		history.Points = append(history.Points, pointOf(s, bar.Date, price, ma20[i], ma100[i]))
	}

	r.log.Info().
		Str("asset", asset).
		Int("bars", len(bars)).
		Int("points", len(history.Points)).
		Msg("History replayed")

	return history, nil
}

func pointOf(s *accounting.AssetSummary, date time.Time, price, ma20, ma100 float64) Point {
	return Point{
		Date:                  date.Format(domain.DateLayout),
		Close:                 price,
		MA20:                  utils.Round(ma20, 2),
		MA100:                 utils.Round(ma100, 2),
		AvgPrice:              s.AvgPrice,
		Position:              s.Position,
		PositionTotal:         s.PositionTotal,
		Cost:                  s.Cost,
		Wages:                 s.Wages,
		LiquidCost:            s.LiquidCost,
		RealizedGain:          s.RealizedGain,
		CapitalGain:           s.CapitalGain,
		Rentability:           s.Rentability,
		AnnualizedRentability: s.AnnualizedRentability,
		AgeDays:               s.AgeDays,
	}
}
