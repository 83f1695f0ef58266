// Package yahoo provides a Yahoo Finance chart API client for quotes and daily history.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/aristath/wallet/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultRateLimit = 2
	DefaultTimeout   = 30 * time.Second
)

// Client is a Yahoo Finance API client
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
	now     func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithRateLimit sets the number of requests per second
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		log:     log.With().Str("client", "yahoo").Logger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetQuote returns the latest close and metadata for a Yahoo symbol
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", "5d")

	result, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	meta := result.Meta
	quote := &Quote{
		Symbol:        meta.Symbol,
		LongName:      meta.LongName,
		ShortName:     meta.ShortName,
		Currency:      meta.Currency,
		QuoteType:     meta.InstrumentType,
		LastClose:     meta.RegularMarketPrice,
		PreviousClose: meta.ChartPreviousClose,
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}

	// Fall back to the last non-null daily close
	if quote.LastClose <= 0 && len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] != nil && *closes[i] > 0 {
				quote.LastClose = *closes[i]
				break
			}
		}
	}
	if quote.LastClose <= 0 {
		return nil, fmt.Errorf("no price available for %s", symbol)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Float64("price", quote.LastClose).
		Str("currency", quote.Currency).
		Msg("Fetched quote")

	return quote, nil
}

// GetHistory returns daily closes between start and end (inclusive), oldest first.
//
// Closes are split-adjusted for the splits inside the returned window, and each
// bar carries the ratio of a split taking effect on it. The provider adjusts for
// every split up to today, so the series is fetched through now and the
// adjustment of splits after end is undone.
func (c *Client) GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("events", "split")
	params.Add("period1", strconv.FormatInt(start.Unix(), 10))
	params.Add("period2", strconv.FormatInt(c.now().Unix(), 10))

	result, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	bars := buildBars(result)

	last := endOfDay(end)
	cut := len(bars)
	for i, bar := range bars {
		if bar.Date.After(last) {
			cut = i
			break
		}
	}

	later := 1.0
	for _, bar := range bars[cut:] {
		if bar.Split > 0 {
			later *= bar.Split
		}
	}
	window := bars[:cut]
	if later != 1 {
		for i := range window {
			window[i].Close *= later
		}
	}

	c.log.Info().
		Str("symbol", symbol).
		Int("count", len(window)).
		Msg("Fetched historical prices")

	return window, nil
}

func (c *Client) fetchChart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + "/" + url.PathEscape(symbol) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Dur("elapsed", time.Since(start)).Msg("Chart request failed")
		return nil, fmt.Errorf("failed to fetch chart: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error for %s: %s", symbol, parsed.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Yahoo Finance API returned status %d", resp.StatusCode)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	return &parsed.Chart.Result[0], nil
}

// buildBars pairs timestamps with closes, dropping null sessions, and marks
// each split on the first bar dated on or after it.
func buildBars(result *chartResult) []domain.PriceBar {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	closes := result.Indicators.Quote[0].Close

	bars := make([]domain.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		bars = append(bars, domain.PriceBar{
			Date:  truncateDay(time.Unix(ts, 0)),
			Close: *closes[i],
		})
	}

	splits := make([]chartSplit, 0, len(result.Events.Splits))
	for _, s := range result.Events.Splits {
		if s.ratio() > 0 {
			splits = append(splits, s)
		}
	}
	sort.Slice(splits, func(i, j int) bool { return splits[i].Date < splits[j].Date })

	for _, s := range splits {
		day := truncateDay(time.Unix(s.Date, 0))
		idx := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(day) })
		if idx == len(bars) {
			continue
		}
		if bars[idx].Split > 0 {
			bars[idx].Split *= s.ratio()
		} else {
			bars[idx].Split = s.ratio()
		}
	}

	return bars
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return truncateDay(t).Add(24*time.Hour - time.Nanosecond)
}
