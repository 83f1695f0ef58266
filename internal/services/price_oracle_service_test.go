package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/aristath/wallet/internal/clientdata"
	"github.com/aristath/wallet/internal/clients/yahoo"
	"github.com/aristath/wallet/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQuoteSource struct {
	mock.Mock
}

func (m *MockQuoteSource) GetQuote(ctx context.Context, symbol string) (*yahoo.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*yahoo.Quote), args.Error(1)
}

func (m *MockQuoteSource) GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	args := m.Called(ctx, symbol, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PriceBar), args.Error(1)
}

type MockFixedIncome struct {
	mock.Mock
}

func (m *MockFixedIncome) Knows(name string) bool {
	return m.Called(name).Bool(0)
}

func (m *MockFixedIncome) GetPrice(ctx context.Context, name string) (float64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(float64), args.Error(1)
}

type staticFX map[string]float64

func (f staticFX) GetRate(quote string) (float64, error) {
	if r, ok := f[quote]; ok {
		return r, nil
	}
	return 0, errors.New("no rate")
}

func setupCache(t *testing.T) *clientdata.Repository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
CREATE TABLE quotes (symbol TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE price_history (symbol TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);`)
	require.NoError(t, err)
	return clientdata.NewRepository(db)
}

func newOracle(t *testing.T, quotes *MockQuoteSource, fixed FixedIncomeSource, cache *clientdata.Repository) *PriceOracleService {
	t.Helper()
	return NewPriceOracleService(quotes, fixed, staticFX{"BRL": 5.0}, cache, time.Hour, []string{"VVAR3"}, zerolog.Nop())
}

func TestGetQuote_Routing(t *testing.T) {
	tests := []struct {
		name      string
		ticker    string
		symbol    string
		quoteType string
		class     string
	}{
		{"b3 stock", "PETR4", "PETR4.SA", "EQUITY", ClassEquity},
		{"b3 fii", "HGLG11", "HGLG11.SA", "EQUITY", ClassFII},
		{"other listing", "AAPL", "AAPL", "EQUITY", "Equity"},
		{"etf", "VOO", "VOO", "ETF", "Etf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quotes := new(MockQuoteSource)
			quotes.On("GetQuote", mock.Anything, tt.symbol).
				Return(&yahoo.Quote{Symbol: tt.symbol, Currency: "BRL", QuoteType: tt.quoteType, LastClose: 10.004}, nil)

			oracle := newOracle(t, quotes, nil, nil)
			quote, err := oracle.GetQuote(context.Background(), tt.ticker)
			require.NoError(t, err)

			assert.Equal(t, tt.ticker, quote.Ticker)
			assert.Equal(t, tt.symbol, quote.Symbol)
			assert.Equal(t, tt.class, quote.AssetClass)
			assert.Equal(t, 10.0, quote.LastClose)
			quotes.AssertExpectations(t)
		})
	}
}

func TestGetQuote_Blacklisted(t *testing.T) {
	quotes := new(MockQuoteSource)
	oracle := newOracle(t, quotes, nil, nil)

	_, err := oracle.GetQuote(context.Background(), "VVAR3")
	assert.ErrorIs(t, err, ErrBlacklisted)
	quotes.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestGetQuote_CryptoConvertedToBRL(t *testing.T) {
	quotes := new(MockQuoteSource)
	quotes.On("GetQuote", mock.Anything, "BTC-USD").
		Return(&yahoo.Quote{Symbol: "BTC-USD", Currency: "USD", QuoteType: "CRYPTOCURRENCY", LastClose: 60000.5}, nil)

	oracle := newOracle(t, quotes, nil, nil)
	quote, err := oracle.GetQuote(context.Background(), "BTC")
	require.NoError(t, err)

	assert.Equal(t, "BRL", quote.Currency)
	assert.Equal(t, ClassCrypto, quote.AssetClass)
	assert.Equal(t, 300002.5, quote.LastClose)
}

func TestGetQuote_FixedIncome(t *testing.T) {
	fixed := new(MockFixedIncome)
	fixed.On("Knows", "Tesouro Selic 2029").Return(true)
	fixed.On("GetPrice", mock.Anything, "Tesouro Selic 2029").Return(14850.33, nil)

	quotes := new(MockQuoteSource)
	oracle := newOracle(t, quotes, fixed, nil)

	quote, err := oracle.GetQuote(context.Background(), "Tesouro Selic 2029")
	require.NoError(t, err)
	assert.Equal(t, ClassFixedIncome, quote.AssetClass)
	assert.Equal(t, "BRL", quote.Currency)
	assert.Equal(t, 14850.33, quote.LastClose)
	quotes.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)

	_, err = oracle.GetHistory(context.Background(), "Tesouro Selic 2029", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestGetQuote_CachesAndFallsBackToStale(t *testing.T) {
	cache := setupCache(t)
	quotes := new(MockQuoteSource)
	quotes.On("GetQuote", mock.Anything, "AAPL").
		Return(&yahoo.Quote{Symbol: "AAPL", Currency: "USD", QuoteType: "EQUITY", LastClose: 190}, nil).Once()

	oracle := newOracle(t, quotes, nil, cache)

	first, err := oracle.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	second, err := oracle.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, first.LastClose, second.LastClose)
	quotes.AssertNumberOfCalls(t, "GetQuote", 1)

	// Expire the entry, then make the provider fail
	require.NoError(t, cache.Store(clientdata.TableQuotes, "AAPL", yahoo.Quote{Symbol: "AAPL", Currency: "USD", LastClose: 185}, -time.Hour))
	quotes.On("GetQuote", mock.Anything, "AAPL").Return(nil, errors.New("network down"))

	stale, err := oracle.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 185.0, stale.LastClose)
}

func TestGetQuote_ProviderFailureWithoutCache(t *testing.T) {
	quotes := new(MockQuoteSource)
	quotes.On("GetQuote", mock.Anything, "ZZZZ").Return(nil, errors.New("not found"))

	oracle := newOracle(t, quotes, nil, nil)
	_, err := oracle.GetQuote(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestGetHistory_CryptoAndCache(t *testing.T) {
	cache := setupCache(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	bars := []domain.PriceBar{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 100},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 110},
	}

	quotes := new(MockQuoteSource)
	quotes.On("GetHistory", mock.Anything, "ETH-USD", start, end).Return(bars, nil).Once()

	oracle := newOracle(t, quotes, nil, cache)

	got, err := oracle.GetHistory(context.Background(), "ETH", start, end)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 500.0, got[0].Close)
	assert.Equal(t, 550.0, got[1].Close)
	// Provider bars untouched
	assert.Equal(t, 100.0, bars[0].Close)

	// Later start with the same end served from cache
	got, err = oracle.GetHistory(context.Background(), "ETH", start.AddDate(0, 0, 2), end)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-01-03", got[0].Date.UTC().Format(domain.DateLayout))
	quotes.AssertNumberOfCalls(t, "GetHistory", 1)
}

func TestGetHistory_EarlierEndBypassesCache(t *testing.T) {
	cache := setupCache(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	// a 2:1 split on the 15th: the long series is adjusted for it, the short one is not
	adjusted := []domain.PriceBar{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 50},
		{Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Close: 52, Split: 2},
	}
	nominal := []domain.PriceBar{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 100},
	}

	quotes := new(MockQuoteSource)
	quotes.On("GetHistory", mock.Anything, "PETR4.SA", start, end).Return(adjusted, nil).Once()
	quotes.On("GetHistory", mock.Anything, "PETR4.SA", start, earlier).Return(nominal, nil).Once()

	oracle := newOracle(t, quotes, nil, cache)

	_, err := oracle.GetHistory(context.Background(), "PETR4", start, end)
	require.NoError(t, err)

	got, err := oracle.GetHistory(context.Background(), "PETR4", start, earlier)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].Close)
	quotes.AssertExpectations(t)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Equity", capitalize("EQUITY"))
	assert.Equal(t, "Mutualfund", capitalize("MUTUALFUND"))
	assert.Equal(t, "", capitalize(""))
}
