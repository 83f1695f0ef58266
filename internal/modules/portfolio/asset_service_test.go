package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/wallet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetAsset_MergesB3Ledgers(t *testing.T) {
	ledger := newFakeLedger(
		negotiation("2023-01-02", "Compra", "HGLG11", 10, 100),
		movimentation("2023-02-15", domain.FlowCredit, "Rendimento", "HGLG11 - CSHG LOGISTICA FDO INV IMOB", "HGLG11", 10, 1, 10),
	)
	oracle := new(MockPriceOracle)
	oracle.On("GetQuote", mock.Anything, "HGLG11").Return(quote("HGLG11", 110, "BRL", "FII"), nil)

	svc := newTestAssetService(ledger, oracle)
	summary, err := svc.GetAsset(context.Background(), domain.AssetSourceB3, "HGLG11")
	require.NoError(t, err)

	assert.Equal(t, "HGLG11", summary.Ticker)
	assert.Equal(t, "BRL", summary.Currency)
	assert.Equal(t, "FII", summary.AssetClass)
	assert.Equal(t, 10.0, summary.Position)
	assert.Equal(t, 1000.0, summary.Cost)
	assert.Equal(t, 10.0, summary.Wages)
	assert.Equal(t, 990.0, summary.LiquidCost)
	assert.Equal(t, 1100.0, summary.PositionTotal)
	assert.Equal(t, "2024-01-01", summary.AsOf)
}

func TestLoadAsset_NegotiationTickerWins(t *testing.T) {
	ledger := newFakeLedger(
		negotiation("2023-01-02", "Compra", "ITSA4F", 3, 10),
		negotiation("2023-01-03", "Compra", "ITSA4", 10, 10),
		negotiation("2023-01-04", "Compra", "ITSA4", 10, 10),
		movimentation("2023-01-05", domain.FlowCredit, "Bonificação em Ativos", "ITSA4 - ITAUSA S.A.", "ITSA", 1, 0, 0),
		movimentation("2023-01-06", domain.FlowCredit, "Dividendo", "ITSA4 - ITAUSA S.A.", "ITSA", 1, 0, 5),
		movimentation("2023-01-07", domain.FlowCredit, "Dividendo", "ITSA4 - ITAUSA S.A.", "ITSA", 1, 0, 5),
	)

	svc := newTestAssetService(ledger, nil)
	data, err := svc.LoadAsset(context.Background(), domain.AssetSourceB3, "ITSA4")
	require.NoError(t, err)

	assert.Equal(t, "ITSA4", data.Ref.Ticker)
	assert.Equal(t, 6, data.Rows)
	assert.Len(t, data.Stream.Buys, 4)
	assert.Len(t, data.Stream.Wages, 2)
}

func TestLoadAsset_AvenueIsUSD(t *testing.T) {
	ledger := newFakeLedger(
		cashRow("2023-03-01", domain.FlowCredit, "Compra", "AAPL", 2, 100, -200),
	)

	svc := newTestAssetService(ledger, nil)
	data, err := svc.LoadAsset(context.Background(), domain.AssetSourceAvenue, "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "USD", data.Ref.Currency)
	require.Len(t, data.Stream.Buys, 1)
	assert.Equal(t, 200.0, data.Stream.Buys[0].Total)
}

func TestLoadAsset_UndatedRowsCounted(t *testing.T) {
	ledger := newFakeLedger(
		negotiation("2023-01-02", "Compra", "PETR4", 1, 10),
		negotiation("", "Compra", "PETR4", 1, 10),
	)

	svc := newTestAssetService(ledger, nil)
	data, err := svc.LoadAsset(context.Background(), domain.AssetSourceB3, "PETR4")
	require.NoError(t, err)
	assert.Equal(t, 1, data.Skipped)
	assert.Len(t, data.Stream.Buys, 1)
}

func TestLoadAsset_Errors(t *testing.T) {
	svc := newTestAssetService(newFakeLedger(), nil)

	_, err := svc.LoadAsset(context.Background(), domain.AssetSourceB3, "PETR4")
	assert.ErrorIs(t, err, ErrAssetNotFound)

	_, err = svc.LoadAsset(context.Background(), domain.AssetSourceB3, "  ")
	assert.ErrorIs(t, err, ErrAssetNotFound)

	_, err = svc.LoadAsset(context.Background(), domain.AssetSource("nyse"), "PETR4")
	assert.Error(t, err)

	failing := newFakeLedger()
	failing.err = errors.New("disk I/O error")
	svc = newTestAssetService(failing, nil)
	_, err = svc.LoadAsset(context.Background(), domain.AssetSourceGeneric, "BTC")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAssetNotFound)
}

func TestListAssets_UnionWithoutBlanks(t *testing.T) {
	ledger := newFakeLedger(
		negotiation("2023-01-02", "Compra", "PETR4", 1, 10),
		movimentation("2023-01-02", domain.FlowCredit, "Dividendo", "PETR4 - PETROBRAS", "PETR4", 1, 0, 1),
		movimentation("2023-01-02", domain.FlowCredit, "Dividendo", "BBAS3 - BANCO DO BRASIL", "BBAS3", 1, 0, 1),
		movimentation("2023-01-02", domain.FlowDebit, "Transferência", "???", "", 1, 0, 1),
	)

	svc := newTestAssetService(ledger, nil)
	assets, err := svc.ListAssets(context.Background(), domain.AssetSourceB3)
	require.NoError(t, err)
	assert.Equal(t, []string{"PETR4", "BBAS3"}, assets)
}
