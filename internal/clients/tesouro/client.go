// Package tesouro scrapes redemption values of Brazilian treasury bonds.
package tesouro

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/aristath/wallet/internal/clientdata"
	"github.com/aristath/wallet/internal/utils"
	"github.com/rs/zerolog"
)

// Bond describes where the redemption value of a bond is published
type Bond struct {
	URL   string
	XPath string
}

const redemptionXPath = `//*[@id="gatsby-focus-wrapper"]/div/div[2]/main/div[1]/div/div[1]/div[4]/div[2]/span`

// DefaultBonds are the bonds priced by scraping, keyed by ledger asset name
var DefaultBonds = map[string]Bond{
	"Tesouro Selic 2029": {
		URL:   "https://taxas-tesouro.com/resgatar/tesouro-selic-2029/",
		XPath: redemptionXPath,
	},
}

type cachedPrice struct {
	Price float64 `json:"price"`
}

// Client scrapes bond pages
type Client struct {
	bonds     map[string]Bond
	client    *http.Client
	cacheRepo *clientdata.Repository
	log       zerolog.Logger
}

// NewClient creates a scraper for the given bonds.
// cacheRepo is optional - if nil, caching is disabled
func NewClient(bonds map[string]Bond, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if bonds == nil {
		bonds = DefaultBonds
	}
	return &Client{
		bonds:     bonds,
		client:    &http.Client{Timeout: 15 * time.Second},
		cacheRepo: cacheRepo,
		log:       log.With().Str("client", "tesouro").Logger(),
	}
}

// Knows reports whether name is a scraped bond
func (c *Client) Knows(name string) bool {
	_, ok := c.bonds[name]
	return ok
}

// GetPrice returns the current redemption value of a bond in BRL, rounded to cents
func (c *Client) GetPrice(ctx context.Context, name string) (float64, error) {
	bond, ok := c.bonds[name]
	if !ok {
		return 0, fmt.Errorf("unknown bond %q", name)
	}

	if price, ok := c.fromCache(name, true); ok {
		c.log.Debug().Str("bond", name).Float64("price", price).Msg("Cache hit")
		return price, nil
	}

	c.log.Info().Str("bond", name).Msg("Scraping redemption value")
	price, err := c.scrape(ctx, bond)
	if err != nil {
		if stale, ok := c.fromCache(name, false); ok {
			c.log.Warn().Err(err).Str("bond", name).Float64("price", stale).Msg("Scrape failed, using stale cached price")
			return stale, nil
		}
		return 0, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(clientdata.TableFixedIncome, name, cachedPrice{Price: price}, clientdata.TTLFixedIncome); err != nil {
			c.log.Warn().Err(err).Str("bond", name).Msg("Failed to cache bond price")
		}
	}

	return price, nil
}

func (c *Client) scrape(ctx context.Context, bond Bond) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bond.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", bond.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s returned status %d", bond.URL, resp.StatusCode)
	}

	doc, err := htmlquery.Parse(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to parse page: %w", err)
	}

	nodes, err := htmlquery.QueryAll(doc, bond.XPath)
	if err != nil {
		return 0, fmt.Errorf("invalid xpath: %w", err)
	}
	if len(nodes) == 0 {
		return 0, fmt.Errorf("redemption value not found at %s", bond.URL)
	}

	text := strings.TrimSpace(htmlquery.InnerText(nodes[0]))
	price, ok := utils.BRLToFloat(text)
	if !ok {
		return 0, fmt.Errorf("unparseable redemption value %q", text)
	}

	return utils.Round(price, 2), nil
}

func (c *Client) fromCache(name string, freshOnly bool) (float64, bool) {
	if c.cacheRepo == nil {
		return 0, false
	}

	var data json.RawMessage
	var err error
	if freshOnly {
		data, err = c.cacheRepo.GetIfFresh(clientdata.TableFixedIncome, name)
	} else {
		data, err = c.cacheRepo.Get(clientdata.TableFixedIncome, name)
	}
	if err != nil || data == nil {
		return 0, false
	}

	var cached cachedPrice
	if err := json.Unmarshal(data, &cached); err != nil {
		return 0, false
	}
	return cached.Price, true
}
