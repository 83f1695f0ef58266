package accounting

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aristath/wallet/internal/domain"
	testingpkg "github.com/aristath/wallet/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPriceOracle struct {
	mock.Mock
}

func (m *MockPriceOracle) GetQuote(ctx context.Context, ticker string) (*domain.Quote, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

func (m *MockPriceOracle) GetHistory(ctx context.Context, ticker string, start, end time.Time) ([]domain.PriceBar, error) {
	args := m.Called(ctx, ticker, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PriceBar), args.Error(1)
}

func newTestEngine(oracle domain.PriceOracle, blacklist ...string) *Engine {
	return NewEngine(oracle, blacklist, zerolog.New(nil).Level(zerolog.Disabled))
}

var (
	asOf = testingpkg.Date("2023-01-01")
	ref  = AssetRef{Name: "PETR4", Source: domain.AssetSourceB3, Ticker: "PETR4", Currency: "BRL"}
)

func TestCompute_WeightedAverageCost(t *testing.T) {
	stream := domain.Stream{
		Buys: []domain.Entry{
			testingpkg.Buy("2021-01-04", 10, 100),
			testingpkg.Buy("2021-01-05", 10, 200),
		},
		Sells: []domain.Entry{testingpkg.Sell("2021-01-06", 5, 180)},
	}

	s := Compute(ref, stream, asOf)

	assert.Equal(t, 150.0, s.AvgPrice)
	assert.Equal(t, 3000.0, s.Cost)
	assert.Equal(t, 15.0, s.Position)
	require.Len(t, s.Sales, 1)
	assert.Equal(t, 150.0, s.Sales[0].AverageCostAtSale)
	assert.InDelta(t, (180.0-150.0)*5, s.RealizedGain, 1e-9)
}

func TestCompute_RealizedGainUsesAverageAtSaleDate(t *testing.T) {
	stream := domain.Stream{
		Buys: []domain.Entry{
			testingpkg.Buy("2021-01-04", 10, 100),
			testingpkg.Buy("2021-03-01", 10, 300),
		},
		Sells: []domain.Entry{
			testingpkg.Sell("2021-02-01", 5, 150),
			testingpkg.Sell("2021-04-01", 5, 250),
		},
	}

	s := Compute(ref, stream, asOf)

	require.Len(t, s.Sales, 2)
	assert.InDelta(t, 250.0, s.Sales[0].Gain, 1e-9)
	assert.InDelta(t, 100.0, s.Sales[0].AverageCostAtSale, 1e-9)
	assert.InDelta(t, 233.3333, s.Sales[1].AverageCostAtSale, 1e-3)
	assert.InDelta(t, 83.3333, s.Sales[1].Gain, 1e-3)
	assert.InDelta(t, 333.3333, s.RealizedGain, 1e-3)
	assert.Equal(t, 10.0, s.Position)
	assert.InDelta(t, 233.3333, s.AvgPrice, 1e-3)
	assert.Equal(t, "2021-02-01", s.Sales[0].SaleDate)
}

func TestCompute_SameDayBuyCountsBeforeSale(t *testing.T) {
	stream := domain.Stream{
		Buys:  []domain.Entry{testingpkg.Buy("2021-01-04", 10, 100)},
		Sells: []domain.Entry{testingpkg.Sell("2021-01-04", 4, 110)},
	}

	s := Compute(ref, stream, asOf)

	require.Len(t, s.Sales, 1)
	assert.InDelta(t, 40.0, s.Sales[0].Gain, 1e-9)
}

func TestCompute_FiltersByAsOf(t *testing.T) {
	stream := domain.Stream{
		Buys: []domain.Entry{
			testingpkg.Buy("2021-01-04", 10, 100),
			testingpkg.Buy("2022-06-01", 10, 200),
		},
		Wages:        []domain.Entry{testingpkg.Entry("2022-07-01", 0, 0, 50)},
		LoanProceeds: []domain.Entry{testingpkg.Entry("2022-07-01", 0, 0, 5)},
	}

	s := Compute(ref, stream, testingpkg.Date("2021-12-31"))

	assert.Equal(t, 10.0, s.Position)
	assert.Equal(t, 100.0, s.AvgPrice)
	assert.Zero(t, s.Wages)
	assert.Zero(t, s.LoanProceeds)
	assert.Equal(t, "2021-01-04", s.FirstBuy)
	assert.Equal(t, 361, s.AgeDays)
}

func TestCompute_RoundsShareDrift(t *testing.T) {
	stream := domain.Stream{
		Buys: []domain.Entry{
			testingpkg.Buy("2021-01-04", 0.1, 10),
			testingpkg.Buy("2021-01-05", 0.2, 10),
		},
		Sells: []domain.Entry{testingpkg.Sell("2021-01-06", -0.3, 12)},
	}

	s := Compute(ref, stream, asOf)

	assert.Equal(t, 0.0, s.Position)
	assert.False(t, s.Held())
	assert.Equal(t, "2021-01-06", s.LastSell)
	assert.Equal(t, 2, s.AgeDays)
}

func TestCompute_LiquidCost(t *testing.T) {
	stream := domain.Stream{
		Buys:         []domain.Entry{testingpkg.Buy("2021-01-04", 10, 100)},
		Taxes:        []domain.Entry{testingpkg.Entry("2021-02-01", 0, 0, 7)},
		Wages:        []domain.Entry{testingpkg.Entry("2021-03-01", 0, 0, 40)},
		LoanProceeds: []domain.Entry{testingpkg.Entry("2021-03-02", 0, 0, 3)},
	}

	s := Compute(ref, stream, asOf)

	assert.Equal(t, 1000.0, s.Cost)
	assert.Equal(t, 1000.0-40-3+7, s.LiquidCost)
}

func TestConsolidate_PricesHeldPosition(t *testing.T) {
	oracle := new(MockPriceOracle)
	oracle.On("GetQuote", mock.Anything, "PETR4").Return(&domain.Quote{
		Ticker: "PETR4", Symbol: "PETR4.SA", LongName: "Petrobras", LastClose: 120,
		Currency: "brl", AssetClass: "Equity",
	}, nil)

	stream := domain.Stream{
		Buys:  []domain.Entry{testingpkg.Buy("2021-01-01", 10, 100)},
		Wages: []domain.Entry{testingpkg.Entry("2021-06-01", 0, 0, 50)},
	}

	s := newTestEngine(oracle).Consolidate(context.Background(), ref, stream, testingpkg.Date("2022-01-01"), nil)

	oracle.AssertExpectations(t)
	assert.True(t, s.PriceAvailable)
	assert.Equal(t, "Equity", s.AssetClass)
	assert.Equal(t, "BRL", s.Currency)
	assert.Equal(t, "PETR4.SA", s.Symbol)
	assert.Equal(t, 120.0, s.LastClosePrice)
	assert.Equal(t, 200.0, s.UnrealizedGain)
	assert.Equal(t, 1200.0, s.PositionTotal)
	assert.InDelta(t, 20.0, s.PriceGain, 1e-9)
	assert.Equal(t, 250.0, s.CapitalGain)
	assert.Equal(t, 950.0, s.LiquidCost)
	assert.InDelta(t, 250.0/950.0, s.Rentability, 1e-12)
	assert.Equal(t, 365, s.AgeDays)
	assert.InDelta(t, 250.0/950.0, s.AnnualizedRentability, 1e-9)
}

func TestConsolidate_SoldPositionSkipsOracle(t *testing.T) {
	oracle := new(MockPriceOracle)
	stream := domain.Stream{
		Buys:  []domain.Entry{testingpkg.Buy("2021-01-04", 10, 100)},
		Sells: []domain.Entry{testingpkg.Sell("2021-06-01", 10, 130)},
	}

	s := newTestEngine(oracle).Consolidate(context.Background(), ref, stream, asOf, nil)

	oracle.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
	assert.Equal(t, AssetClassSold, s.AssetClass)
	assert.Zero(t, s.LastClosePrice)
	assert.Zero(t, s.UnrealizedGain)
	assert.Equal(t, -100.0, s.PriceGain)
	assert.Equal(t, 300.0, s.RealizedGain)
	assert.Equal(t, "2021-06-01", s.LastSell)
	assert.Equal(t, 148, s.AgeDays)
}

func TestConsolidate_OracleFailureDegrades(t *testing.T) {
	oracle := new(MockPriceOracle)
	oracle.On("GetQuote", mock.Anything, "PETR4").Return(nil, errors.New("network down"))

	stream := domain.Stream{Buys: []domain.Entry{testingpkg.Buy("2021-01-04", 10, 100)}}
	s := newTestEngine(oracle).Consolidate(context.Background(), ref, stream, asOf, nil)

	assert.False(t, s.PriceAvailable)
	assert.Equal(t, AssetClassUnknown, s.AssetClass)
	assert.Zero(t, s.LastClosePrice)
	assert.Equal(t, -1000.0, s.UnrealizedGain)
	assert.Equal(t, "BRL", s.Currency)
}

func TestConsolidate_BlacklistSkipsOracle(t *testing.T) {
	oracle := new(MockPriceOracle)
	blocked := AssetRef{Name: "VVAR3", Source: domain.AssetSourceB3, Ticker: "VVAR3", Currency: "BRL"}
	stream := domain.Stream{Buys: []domain.Entry{testingpkg.Buy("2021-01-04", 10, 10)}}

	s := newTestEngine(oracle, "vvar3").Consolidate(context.Background(), blocked, stream, asOf, nil)

	oracle.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
	assert.False(t, s.PriceAvailable)
	assert.Equal(t, 10.0, s.Position)
}

func TestConsolidate_OverridePrice(t *testing.T) {
	oracle := new(MockPriceOracle)
	stream := domain.Stream{Buys: []domain.Entry{testingpkg.Buy("2021-01-04", 10, 100)}}
	price := 90.0

	s := newTestEngine(oracle).Consolidate(context.Background(), ref, stream, asOf, &price)

	oracle.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
	assert.Equal(t, 90.0, s.LastClosePrice)
	assert.Equal(t, -100.0, s.UnrealizedGain)
	assert.InDelta(t, -0.1, s.Rentability, 1e-12)
}

func TestConsolidate_ZeroLiquidCost(t *testing.T) {
	oracle := new(MockPriceOracle)
	price := 50.0
	stream := domain.Stream{
		// bonus shares carry no price
		Buys:  []domain.Entry{testingpkg.Entry("2021-01-04", 10, 0, 0)},
		Wages: []domain.Entry{testingpkg.Entry("2021-02-01", 0, 0, 20)},
	}

	s := newTestEngine(oracle).Consolidate(context.Background(), ref, stream, asOf, &price)

	assert.Equal(t, -20.0, s.LiquidCost)
	assert.Zero(t, s.Rentability)
	assert.Zero(t, s.AnnualizedRentability)
	assert.Zero(t, s.PriceGain)
	assert.False(t, math.IsNaN(s.AnnualizedRentability))
}

func TestConsolidate_EmptyStream(t *testing.T) {
	oracle := new(MockPriceOracle)
	s := newTestEngine(oracle).Consolidate(context.Background(), ref, domain.Stream{}, asOf, nil)

	oracle.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
	assert.Equal(t, AssetClassSold, s.AssetClass)
	assert.Zero(t, s.AvgPrice)
	assert.Zero(t, s.Rentability)
	assert.Zero(t, s.AgeYears)
	assert.Empty(t, s.Sales)
}

func TestAnnualize(t *testing.T) {
	assert.Zero(t, Annualize(0.5, 0))
	assert.InDelta(t, 0.5, Annualize(0.5, 1), 1e-12)
	assert.InDelta(t, math.Sqrt(1.21)-1, Annualize(0.21, 2), 1e-12)
	assert.Equal(t, -1.0, Annualize(-1, 3))
	assert.Equal(t, -1.0, Annualize(-1.5, 3))
	assert.Zero(t, Annualize(1e308, 1e-300))
}
