package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

const userAgent = "Nebula-Ledger/1.0"

// CoinGecko fetches USD prices from the CoinGecko simple price endpoint
type CoinGecko struct {
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time
	log     zerolog.Logger
}

// NewCoinGecko creates a client for baseURL, e.g. https://api.coingecko.com/api/v3
func NewCoinGecko(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *CoinGecko {
	return &CoinGecko{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
		log:     log.With().Str("client", "coingecko").Logger(),
	}
}

// simplePrice is one entry of the /simple/price response
type simplePrice struct {
	USD       json.Number `json:"usd"`
	Change24h json.Number `json:"usd_24h_change"`
}

// Fetch requests quotes for ids. With no ids it returns an empty batch
// without calling upstream.
func (c *CoinGecko) Fetch(ctx context.Context, ids []string) (models.QuoteBatch, error) {
	if len(ids) == 0 {
		return emptyBatch(c.now().UTC()), nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return models.QuoteBatch{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.QuoteBatch{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("CoinGecko returned error status")
		return models.QuoteBatch{}, fmt.Errorf("%w: CoinGecko responded with status %d", ErrUpstream, resp.StatusCode)
	}

	var payload map[string]simplePrice
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return models.QuoteBatch{}, fmt.Errorf("%w: failed to decode response: %v", ErrUpstream, err)
	}

	fetchedAt := c.now().UTC()
	batch := emptyBatch(fetchedAt)
	for _, id := range ids {
		p, ok := payload[id]
		if !ok {
			continue
		}
		batch.Quotes = append(batch.Quotes, models.PriceQuote{
			AssetID:     id,
			Price:       numberOrZero(p.USD),
			Change24h:   numberOrZero(p.Change24h),
			LastUpdated: fetchedAt,
		})
	}

	c.log.Debug().Int("requested", len(ids)).Int("received", len(batch.Quotes)).Msg("Fetched quotes")
	return batch, nil
}

// numberOrZero converts an upstream number, treating absent or null as zero
func numberOrZero(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return v
}
