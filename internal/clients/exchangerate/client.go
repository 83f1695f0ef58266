// Package exchangerate provides currency exchange rate fetching and caching functionality.
package exchangerate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/wallet/internal/clientdata"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the exchangerate-api.com latest-rates endpoint
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// Client for exchangerate-api.com
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
	ttl       time.Duration
}

// NewClient creates a new exchangerate-api.com client
// cacheRepo is optional - if nil, caching is disabled
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "exchangerate-api").Logger(),
		cacheRepo: cacheRepo,
		ttl:       clientdata.TTLExchangeRate,
	}
}

// cachedExchangeRate is the structure stored in the cache
type cachedExchangeRate struct {
	Rate      float64   `json:"rate"`
	FetchedAt time.Time `json:"fetched_at"`
}

func pairKey(from, to string) string {
	return from + ":" + to
}

// GetRate returns how many units of toCurrency one unit of fromCurrency buys.
// If the API fails, returns stale cached data if available.
func (c *Client) GetRate(fromCurrency, toCurrency string) (float64, error) {
	fromCurrency = strings.ToUpper(fromCurrency)
	toCurrency = strings.ToUpper(toCurrency)
	if fromCurrency == toCurrency {
		return 1.0, nil
	}

	cacheKey := pairKey(fromCurrency, toCurrency)

	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh(clientdata.TableExchangeRate, cacheKey)
		if err == nil && data != nil {
			var cached cachedExchangeRate
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().
					Str("pair", cacheKey).
					Float64("rate", cached.Rate).
					Msg("Cache hit")
				return cached.Rate, nil
			}
		}
	}

	rates, err := c.fetchRates(fromCurrency)
	if err != nil {
		return c.staleOrError(cacheKey, err)
	}

	rate, exists := rates[toCurrency]
	if !exists || rate <= 0 {
		return c.staleOrError(cacheKey, fmt.Errorf("rate not found for %s->%s", fromCurrency, toCurrency))
	}

	// Every pair of the response is cached, one request serves the whole table
	if c.cacheRepo != nil {
		now := time.Now()
		for currency, r := range rates {
			if r <= 0 || currency == fromCurrency {
				continue
			}
			cached := cachedExchangeRate{Rate: r, FetchedAt: now}
			if err := c.cacheRepo.Store(clientdata.TableExchangeRate, pairKey(fromCurrency, currency), cached, c.ttl); err != nil {
				c.log.Warn().Err(err).Str("pair", pairKey(fromCurrency, currency)).Msg("Failed to cache exchange rate")
				break
			}
		}
	}

	c.log.Info().
		Str("from", fromCurrency).
		Str("to", toCurrency).
		Float64("rate", rate).
		Msg("Fetched rate")

	return rate, nil
}

func (c *Client) fetchRates(base string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, base)
	c.log.Debug().Str("url", url).Msg("Fetching rates")

	resp, err := c.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Rates) == 0 {
		return nil, fmt.Errorf("empty rate table for %s", base)
	}

	return result.Rates, nil
}

// staleOrError falls back to an expired cache entry, logging the original failure.
func (c *Client) staleOrError(cacheKey string, cause error) (float64, error) {
	if staleRate, ok := c.getStaleFromCache(cacheKey); ok {
		c.log.Warn().
			Err(cause).
			Str("pair", cacheKey).
			Float64("rate", staleRate).
			Msg("API failed, using stale cached rate")
		return staleRate, nil
	}
	return 0, cause
}

// getStaleFromCache retrieves cached rate even if expired.
func (c *Client) getStaleFromCache(cacheKey string) (float64, bool) {
	if c.cacheRepo == nil {
		return 0, false
	}

	data, err := c.cacheRepo.Get(clientdata.TableExchangeRate, cacheKey)
	if err != nil || data == nil {
		return 0, false
	}

	var cached cachedExchangeRate
	if err := json.Unmarshal(data, &cached); err != nil {
		return 0, false
	}

	return cached.Rate, true
}
