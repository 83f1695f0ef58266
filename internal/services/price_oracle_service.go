package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/wallet/internal/clientdata"
	"github.com/aristath/wallet/internal/clients/yahoo"
	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/modules/classifier"
	"github.com/aristath/wallet/internal/utils"
	"github.com/rs/zerolog"
)

var (
	// ErrBlacklisted is returned for tickers that must never be looked up online
	ErrBlacklisted = errors.New("ticker is blacklisted")
	// ErrNoPrice is returned when no provider can price a ticker
	ErrNoPrice = errors.New("no price available")
)

// Asset classes assigned by routing
const (
	ClassEquity      = "Equity"
	ClassFII         = "FII"
	ClassCrypto      = "Cryptocurrency"
	ClassFixedIncome = "Renda Fixa"
)

// QuoteSource is the market data provider behind the oracle
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*yahoo.Quote, error)
	GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error)
}

// FixedIncomeSource prices bonds that are not listed on the quote provider
type FixedIncomeSource interface {
	Knows(name string) bool
	GetPrice(ctx context.Context, name string) (float64, error)
}

// PriceOracleService routes tickers to the right provider and caches the answers.
// It implements domain.PriceOracle.
type PriceOracleService struct {
	quotes    QuoteSource
	fixed     FixedIncomeSource
	fx        domain.FXRateProvider
	cacheRepo *clientdata.Repository
	ttl       time.Duration
	blacklist map[string]bool
	log       zerolog.Logger
}

// NewPriceOracleService creates a new price oracle.
// fixed and cacheRepo are optional.
func NewPriceOracleService(
	quotes QuoteSource,
	fixed FixedIncomeSource,
	fx domain.FXRateProvider,
	cacheRepo *clientdata.Repository,
	ttl time.Duration,
	blacklist []string,
	log zerolog.Logger,
) *PriceOracleService {
	bl := make(map[string]bool, len(blacklist))
	for _, t := range blacklist {
		bl[strings.ToUpper(strings.TrimSpace(t))] = true
	}
	if ttl <= 0 {
		ttl = clientdata.TTLQuote
	}
	return &PriceOracleService{
		quotes:    quotes,
		fixed:     fixed,
		fx:        fx,
		cacheRepo: cacheRepo,
		ttl:       ttl,
		blacklist: bl,
		log:       log.With().Str("service", "price_oracle").Logger(),
	}
}

type routeKind int

const (
	routeQuote routeKind = iota
	routeCrypto
	routeFixedIncome
)

type route struct {
	kind   routeKind
	symbol string
	class  string // empty means use the provider's quote type
}

func (s *PriceOracleService) resolve(ticker string) (route, error) {
	if s.blacklist[strings.ToUpper(ticker)] {
		return route{}, ErrBlacklisted
	}

	switch {
	case classifier.IsB3StockTicker(ticker):
		return route{kind: routeQuote, symbol: ticker + ".SA", class: ClassEquity}, nil
	case classifier.IsB3FIITicker(ticker):
		return route{kind: routeQuote, symbol: ticker + ".SA", class: ClassFII}, nil
	case ticker == "BTC" || ticker == "ETH":
		return route{kind: routeCrypto, symbol: ticker + "-USD", class: ClassCrypto}, nil
	case s.fixed != nil && s.fixed.Knows(ticker):
		return route{kind: routeFixedIncome, symbol: ticker, class: ClassFixedIncome}, nil
	default:
		return route{kind: routeQuote, symbol: ticker}, nil
	}
}

// GetQuote returns the latest close of ticker with its currency and asset class
func (s *PriceOracleService) GetQuote(ctx context.Context, ticker string) (*domain.Quote, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrNoPrice)
	}

	r, err := s.resolve(ticker)
	if err != nil {
		return nil, err
	}

	if r.kind == routeFixedIncome {
		price, err := s.fixed.GetPrice(ctx, ticker)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoPrice, err)
		}
		return &domain.Quote{
			Ticker:     ticker,
			Symbol:     r.symbol,
			LongName:   ticker,
			LastClose:  price,
			Currency:   "BRL",
			AssetClass: r.class,
		}, nil
	}

	yq, err := s.providerQuote(ctx, r.symbol)
	if err != nil {
		return nil, err
	}

	quote := &domain.Quote{
		Ticker:     ticker,
		Symbol:     r.symbol,
		LongName:   yq.Name(),
		LastClose:  utils.Round(yq.LastClose, 2),
		Currency:   yq.Currency,
		AssetClass: r.class,
	}
	if quote.AssetClass == "" {
		quote.AssetClass = capitalize(yq.QuoteType)
	}

	if r.kind == routeCrypto {
		rate, err := s.fx.GetRate("BRL")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoPrice, err)
		}
		quote.LastClose = utils.Round(rate*yq.LastClose, 2)
		quote.Currency = "BRL"
	}

	return quote, nil
}

// GetHistory returns the split-adjusted daily closes of ticker between start and end.
// Crypto closes are converted into BRL.
func (s *PriceOracleService) GetHistory(ctx context.Context, ticker string, start, end time.Time) ([]domain.PriceBar, error) {
	r, err := s.resolve(strings.TrimSpace(ticker))
	if err != nil {
		return nil, err
	}
	if r.kind == routeFixedIncome {
		return nil, fmt.Errorf("%w: no history for %s", ErrNoPrice, ticker)
	}

	bars, err := s.providerHistory(ctx, r.symbol, start, end)
	if err != nil {
		return nil, err
	}

	if r.kind == routeCrypto {
		rate, err := s.fx.GetRate("BRL")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoPrice, err)
		}
		converted := make([]domain.PriceBar, len(bars))
		for i, bar := range bars {
			bar.Close *= rate
			converted[i] = bar
		}
		bars = converted
	}

	return bars, nil
}

// providerQuote serves a fresh cached quote, then the provider, then a stale cached quote.
func (s *PriceOracleService) providerQuote(ctx context.Context, symbol string) (*yahoo.Quote, error) {
	if s.cacheRepo != nil {
		if data, err := s.cacheRepo.GetIfFresh(clientdata.TableQuotes, symbol); err == nil && data != nil {
			var cached yahoo.Quote
			if err := json.Unmarshal(data, &cached); err == nil {
				s.log.Debug().Str("symbol", symbol).Msg("Quote cache hit")
				return &cached, nil
			}
		}
	}

	quote, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		if s.cacheRepo != nil {
			if data, cerr := s.cacheRepo.Get(clientdata.TableQuotes, symbol); cerr == nil && data != nil {
				var cached yahoo.Quote
				if jerr := json.Unmarshal(data, &cached); jerr == nil {
					s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed, using stale cached quote")
					return &cached, nil
				}
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrNoPrice, err)
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.Store(clientdata.TableQuotes, symbol, quote, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
		}
	}
	return quote, nil
}

// cachedHistory is a provider series as fetched for [Start, End]. The provider
// split-adjusts closes relative to the end of the fetch, so a series only
// answers requests ending on the same day; an earlier end could fall before a
// split the cached closes already account for.
type cachedHistory struct {
	Start string            `msgpack:"start"`
	End   string            `msgpack:"end"`
	Bars  []domain.PriceBar `msgpack:"bars"`
}

func (h *cachedHistory) covers(start, end time.Time) bool {
	return h.End == end.Format(domain.DateLayout) && h.Start <= start.Format(domain.DateLayout)
}

func (h *cachedHistory) window(start, end time.Time) []domain.PriceBar {
	first := start.Format(domain.DateLayout)
	last := end.Format(domain.DateLayout)
	out := make([]domain.PriceBar, 0, len(h.Bars))
	for _, bar := range h.Bars {
		bar.Date = bar.Date.UTC()
		d := bar.Date.Format(domain.DateLayout)
		if d >= first && d <= last {
			out = append(out, bar)
		}
	}
	return out
}

func (s *PriceOracleService) providerHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	var cached cachedHistory
	if s.cacheRepo != nil {
		found, err := s.cacheRepo.LoadBinary(clientdata.TablePriceHistory, symbol, true, &cached)
		if err == nil && found && cached.covers(start, end) {
			s.log.Debug().Str("symbol", symbol).Msg("History cache hit")
			return cached.window(start, end), nil
		}
	}

	bars, err := s.quotes.GetHistory(ctx, symbol, start, end)
	if err != nil {
		if s.cacheRepo != nil {
			found, cerr := s.cacheRepo.LoadBinary(clientdata.TablePriceHistory, symbol, false, &cached)
			if cerr == nil && found && cached.covers(start, end) {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("History fetch failed, using stale cached series")
				return cached.window(start, end), nil
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrNoPrice, err)
	}

	if s.cacheRepo != nil {
		entry := cachedHistory{
			Start: start.Format(domain.DateLayout),
			End:   end.Format(domain.DateLayout),
			Bars:  bars,
		}
		if err := s.cacheRepo.StoreBinary(clientdata.TablePriceHistory, symbol, entry, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache price history")
		}
	}
	return bars, nil
}

// capitalize mirrors the provider quote type into a display class ("EQUITY" -> "Equity")
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
