package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/modules/accounting"
	"github.com/aristath/wallet/internal/modules/historical"
	"github.com/aristath/wallet/internal/modules/portfolio"
	testingpkg "github.com/aristath/wallet/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAssetLoader struct {
	mock.Mock
}

func (m *MockAssetLoader) LoadAsset(ctx context.Context, source domain.AssetSource, asset string) (*portfolio.AssetData, error) {
	args := m.Called(ctx, source, asset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portfolio.AssetData), args.Error(1)
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

func setupRouter(assets *MockAssetLoader, oracle *MockPriceOracle) chi.Router {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	replayer := historical.NewReplayer(assets, oracle, accounting.NewEngine(oracle, nil, log), 0, log)

	router := chi.NewRouter()
	NewHandler(replayer, log).RegisterRoutes(router)
	return router
}

func itsa() *portfolio.AssetData {
	return &portfolio.AssetData{
		Ref:    accounting.AssetRef{Name: "ITSA4", Source: domain.AssetSourceB3, Ticker: "ITSA4", Currency: "BRL"},
		Stream: domain.Stream{Buys: []domain.Entry{testingpkg.Buy("2024-01-02", 10, 10)}},
	}
}

func TestHandleGetHistory(t *testing.T) {
	assets := new(MockAssetLoader)
	oracle := new(MockPriceOracle)
	assets.On("LoadAsset", mock.Anything, domain.AssetSourceB3, "ITSA4").Return(itsa(), nil)
	oracle.On("GetHistory", mock.Anything, "ITSA4", testingpkg.Date("2024-01-02"), mock.Anything).Return([]domain.PriceBar{
		{Date: testingpkg.Date("2024-01-02"), Close: 10},
		{Date: testingpkg.Date("2024-01-03"), Close: 11},
		{Date: testingpkg.Date("2024-01-04"), Close: 12},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/assets/b3/ITSA4/history?step=2", nil)
	w := httptest.NewRecorder()
	setupRouter(assets, oracle).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data     historical.History     `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ITSA4", response.Data.Ticker)
	assert.Equal(t, 2, response.Data.Step)
	require.Len(t, response.Data.Points, 2)
	assert.Equal(t, "2024-01-04", response.Data.Points[1].Date)
	assert.Equal(t, 120.0, response.Data.Points[1].PositionTotal)
	assert.Equal(t, 20.0, response.Data.Points[1].CapitalGain)
	assert.Equal(t, float64(2), response.Metadata["count"])
}

func TestHandleGetHistory_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		setup  func(assets *MockAssetLoader, oracle *MockPriceOracle)
		status int
	}{
		{
			name:   "unknown source",
			path:   "/assets/nasdaq/AAPL/history",
			setup:  func(*MockAssetLoader, *MockPriceOracle) {},
			status: http.StatusBadRequest,
		},
		{
			name:   "bad step",
			path:   "/assets/b3/ITSA4/history?step=abc",
			setup:  func(*MockAssetLoader, *MockPriceOracle) {},
			status: http.StatusBadRequest,
		},
		{
			name: "asset not found",
			path: "/assets/b3/NOPE3/history",
			setup: func(a *MockAssetLoader, _ *MockPriceOracle) {
				a.On("LoadAsset", mock.Anything, domain.AssetSourceB3, "NOPE3").Return(nil, portfolio.ErrAssetNotFound)
			},
			status: http.StatusNotFound,
		},
		{
			name: "no history",
			path: "/assets/b3/ITSA4/history",
			setup: func(a *MockAssetLoader, o *MockPriceOracle) {
				a.On("LoadAsset", mock.Anything, domain.AssetSourceB3, "ITSA4").Return(itsa(), nil)
				o.On("GetHistory", mock.Anything, "ITSA4", mock.Anything, mock.Anything).Return(nil, errors.New("delisted"))
			},
			status: http.StatusNotFound,
		},
		{
			name: "ledger failure",
			path: "/assets/b3/ITSA4/history",
			setup: func(a *MockAssetLoader, _ *MockPriceOracle) {
				a.On("LoadAsset", mock.Anything, domain.AssetSourceB3, "ITSA4").Return(nil, errors.New("database is locked"))
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assets := new(MockAssetLoader)
			oracle := new(MockPriceOracle)
			tt.setup(assets, oracle)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			setupRouter(assets, oracle).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
