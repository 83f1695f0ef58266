package portfolio

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/modules/accounting"
	testingpkg "github.com/aristath/wallet/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

type fakeLedger struct {
	rows map[domain.Source][]domain.Transaction
	err  error
}

func newFakeLedger(rows ...domain.Transaction) *fakeLedger {
	f := &fakeLedger{rows: make(map[domain.Source][]domain.Transaction)}
	for _, r := range rows {
		f.rows[r.Source] = append(f.rows[r.Source], r)
	}
	return f
}

func (f *fakeLedger) FindByAsset(ctx context.Context, source domain.Source, asset string) ([]domain.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Transaction
	for _, r := range f.rows[source] {
		if strings.Contains(r.Asset, asset) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedger) FindByTicker(ctx context.Context, source domain.Source, ticker string) ([]domain.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Transaction
	for _, r := range f.rows[source] {
		if r.Ticker == ticker {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedger) DistinctTickers(ctx context.Context, source domain.Source) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range f.rows[source] {
		if !seen[r.Ticker] {
			seen[r.Ticker] = true
			out = append(out, r.Ticker)
		}
	}
	sort.Strings(out)
	return out, nil
}

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

type staticFX map[string]float64

func (f staticFX) GetRate(quote string) (float64, error) {
	if r, ok := f[quote]; ok {
		return r, nil
	}
	return 0, errors.New("rate unavailable")
}

var testNow = testingpkg.Date("2024-01-01")

func newTestAssetService(ledger LedgerReader, oracle domain.PriceOracle) *AssetService {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	svc := NewAssetService(ledger, accounting.NewEngine(oracle, []string{"VVAR3"}, log), log)
	svc.now = func() time.Time { return testNow }
	return svc
}

func quote(ticker string, price float64, currency, class string) *domain.Quote {
	return &domain.Quote{Ticker: ticker, Symbol: ticker, LastClose: price, Currency: currency, AssetClass: class}
}

func negotiation(date, movement, code string, qty, price float64) domain.Transaction {
	t := testingpkg.Negotiation(date, movement, code, qty, price)
	t.Ticker = code
	return t
}

func movimentation(date string, flow domain.FlowDirection, movement, product, ticker string, qty, price, total float64) domain.Transaction {
	t := testingpkg.Movimentation(date, flow, movement, product, qty, price, total)
	t.Ticker = ticker
	return t
}

func cashRow(date string, flow domain.FlowDirection, movement, ticker string, qty, price, total float64) domain.Transaction {
	return domain.Transaction{
		Source:       domain.SourceCashExtract,
		Date:         date,
		Flow:         flow,
		MovementType: movement,
		Asset:        ticker,
		Ticker:       ticker,
		Quantity:     testingpkg.Float(qty),
		UnitPrice:    testingpkg.Float(price),
		TotalValue:   total,
	}
}
