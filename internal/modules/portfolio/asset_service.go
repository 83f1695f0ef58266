// Package portfolio consolidates ledger assets into per-asset summaries and
// currency/asset-class grouped portfolio views.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/modules/accounting"
	"github.com/aristath/wallet/internal/modules/classifier"
	"github.com/aristath/wallet/internal/utils"
	"github.com/rs/zerolog"
)

// ErrAssetNotFound is returned when no ledger row matches the requested asset
var ErrAssetNotFound = errors.New("asset not found")

// LedgerReader is the read side of the transaction store
type LedgerReader interface {
	FindByAsset(ctx context.Context, source domain.Source, asset string) ([]domain.Transaction, error)
	FindByTicker(ctx context.Context, source domain.Source, ticker string) ([]domain.Transaction, error)
	DistinctTickers(ctx context.Context, source domain.Source) ([]string, error)
}

// Engine consolidates one asset stream
type Engine interface {
	Consolidate(ctx context.Context, ref accounting.AssetRef, stream domain.Stream, asOf time.Time, overridePrice *float64) *accounting.AssetSummary
}

// AssetData is everything known about one asset before pricing
type AssetData struct {
	Ref     accounting.AssetRef
	Stream  domain.Stream
	Rows    int
	Skipped int // rows without a usable date
}

// AssetService looks up single assets across the ledgers of a namespace
type AssetService struct {
	ledger LedgerReader
	engine Engine
	now    func() time.Time
	log    zerolog.Logger
}

// NewAssetService creates a new asset service
func NewAssetService(ledger LedgerReader, engine Engine, log zerolog.Logger) *AssetService {
	return &AssetService{
		ledger: ledger,
		engine: engine,
		now:    time.Now,
		log:    log.With().Str("service", "asset").Logger(),
	}
}

// ledgersOf lists the ledgers searched for a namespace. For B3 the negotiation
// ledger comes first: its codes win the ticker vote.
func ledgersOf(source domain.AssetSource) []domain.Source {
	switch source {
	case domain.AssetSourceB3:
		return []domain.Source{domain.SourceB3Negotiation, domain.SourceB3Movimentation}
	case domain.AssetSourceAvenue:
		return []domain.Source{domain.SourceCashExtract}
	case domain.AssetSourceGeneric:
		return []domain.Source{domain.SourceGenericExtract}
	}
	return nil
}

func currencyOf(source domain.AssetSource) string {
	if source == domain.AssetSourceAvenue {
		return "USD"
	}
	return "BRL"
}

// LoadAsset gathers and classifies every row whose asset column contains asset.
// This is the lookup behind user requests, where a partial name is enough.
func (s *AssetService) LoadAsset(ctx context.Context, source domain.AssetSource, asset string) (*AssetData, error) {
	return s.load(ctx, source, asset, s.ledger.FindByAsset)
}

// LoadTicker gathers and classifies the rows whose derived ticker equals ticker.
// Consolidation uses it so that every row belongs to exactly one asset.
func (s *AssetService) LoadTicker(ctx context.Context, source domain.AssetSource, ticker string) (*AssetData, error) {
	return s.load(ctx, source, ticker, s.ledger.FindByTicker)
}

type findFunc func(ctx context.Context, source domain.Source, key string) ([]domain.Transaction, error)

func (s *AssetService) load(ctx context.Context, source domain.AssetSource, asset string, find findFunc) (*AssetData, error) {
	asset = strings.TrimSpace(asset)
	if !source.Valid() {
		return nil, fmt.Errorf("invalid asset source %q", source)
	}
	if asset == "" {
		return nil, fmt.Errorf("%w: empty asset identifier", ErrAssetNotFound)
	}

	var txs []domain.Transaction
	ticker := ""
	for _, ledger := range ledgersOf(source) {
		rows, err := find(ctx, ledger, asset)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s rows for %s: %w", ledger, asset, err)
		}
		if ticker == "" {
			tickers := make([]string, len(rows))
			for i, row := range rows {
				tickers[i] = row.Ticker
			}
			ticker = utils.MostFrequent(tickers)
		}
		txs = append(txs, rows...)
	}

	if len(txs) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrAssetNotFound, source, asset)
	}
	if ticker == "" {
		ticker = asset
	}

	stream, skipped := classifier.BuildStream(txs)
	if skipped > 0 {
		s.log.Warn().
			Str("asset", asset).
			Int("skipped", skipped).
			Msg("Rows without a usable date left out")
	}

	return &AssetData{
		Ref: accounting.AssetRef{
			Name:     asset,
			Source:   source,
			Ticker:   ticker,
			Currency: currencyOf(source),
		},
		Stream:  stream,
		Rows:    len(txs),
		Skipped: skipped,
	}, nil
}

// GetAsset returns the consolidated summary of asset as of now
func (s *AssetService) GetAsset(ctx context.Context, source domain.AssetSource, asset string) (*accounting.AssetSummary, error) {
	data, err := s.LoadAsset(ctx, source, asset)
	if err != nil {
		return nil, err
	}
	return s.engine.Consolidate(ctx, data.Ref, data.Stream, s.now(), nil), nil
}

// ListAssets returns the distinct non-blank asset identifiers of a namespace,
// in ledger order without duplicates.
func (s *AssetService) ListAssets(ctx context.Context, source domain.AssetSource) ([]string, error) {
	seen := make(map[string]bool)
	var assets []string
	for _, ledger := range ledgersOf(source) {
		tickers, err := s.ledger.DistinctTickers(ctx, ledger)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s tickers: %w", ledger, err)
		}
		for _, t := range tickers {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			assets = append(assets, t)
		}
	}
	return assets, nil
}
