// Package rates looks up currency exchange rates from the Frankfurter API.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pbaille/tripplan/internal/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "https://api.frankfurter.app"
	DefaultFrom     = "GBP"
	DefaultTo       = "USD"

	// TTL is how long a fetched rate is served from cache.
	TTL = 24 * time.Hour
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Rate is the value of one unit of From expressed in To
type Rate struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rate decimal.Decimal `json:"rate"`
	Date string          `json:"date"`
}

// Convert applies the rate to an amount.
func (r Rate) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.Rate)
}

// Client fetches rates and keeps them in an injected cache
type Client struct {
	endpoint string
	http     *http.Client
	cache    cache.Cache[Rate]
	logger   *zap.Logger
}

// New creates a Client. An empty endpoint selects DefaultEndpoint.
func New(endpoint string, c cache.Cache[Rate], logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		cache:    c,
		logger:   logger,
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Latest returns today's rate from one currency to another. Empty codes
// default to GBP and USD.
func (c *Client) Latest(ctx context.Context, from, to string) (Rate, error) {
	from = normalizeCode(from, DefaultFrom)
	to = normalizeCode(to, DefaultTo)
	if !currencyCode.MatchString(from) || !currencyCode.MatchString(to) {
		return Rate{}, fmt.Errorf("invalid currency pair %q/%q", from, to)
	}
	if from == to {
		return Rate{From: from, To: to, Rate: decimal.NewFromInt(1), Date: time.Now().Format("2006-01-02")}, nil
	}

	key := from + ":" + to
	if c.cache != nil {
		if r, ok := c.cache.Get(key); ok {
			return r, nil
		}
	}

	q := url.Values{"from": {from}, "to": {to}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/latest?"+q.Encode(), nil)
	if err != nil {
		return Rate{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Rate{}, fmt.Errorf("fetch rate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Rate{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Rate{}, fmt.Errorf("rate api error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var latest latestResponse
	if err := json.Unmarshal(body, &latest); err != nil {
		return Rate{}, fmt.Errorf("unmarshal response: %w", err)
	}
	value, ok := latest.Rates[to]
	if !ok {
		return Rate{}, fmt.Errorf("no %s rate for %s", to, from)
	}

	r := Rate{From: from, To: to, Rate: value, Date: latest.Date}
	if c.cache != nil {
		c.cache.Set(key, r, TTL)
	}
	c.logger.Debug("exchange rate fetched", zap.String("pair", key), zap.String("rate", value.String()))
	return r, nil
}

func normalizeCode(code, fallback string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fallback
	}
	return code
}
