/**
 * @description
 * HTTP client for the Commoditic API.
 * Fetches the full daily price series for one material in a single call
 * (the API has no span limit) and normalizes it. Quotes are direct prices
 * in the currency named by the unit string, so when that currency is USD
 * the USD price is the quote itself.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/config
 * - backend/internal/pricefeed
 */

package commoditic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/shopspring/decimal"
)

const (
	DefaultTimeout = 15 * time.Second

	dateLayout = "2006-01-02"
)

type Client struct {
	BaseURL    string
	APIKey     string
	Category   string
	Frequency  string
	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:   cfg.Sources.CommoditicURL,
		APIKey:    cfg.Sources.CommoditicKey,
		Category:  cfg.Sources.CommoditicCategory,
		Frequency: cfg.Sources.CommoditicFrequency,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Name returns the canonical source name
func (c *Client) Name() string {
	return pricefeed.SourceCommoditic
}

// MaxSpanDays is 0: one request covers any range
func (c *Client) MaxSpanDays() int {
	return 0
}

// FetchDaily fetches the daily price series for one material name over a
// closed interval and normalizes it. The symbol for this source is the
// material name itself.
func (c *Client) FetchDaily(ctx context.Context, symbol string, ivl pricefeed.Interval) ([]pricefeed.PricePoint, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("key", c.APIKey)
	q.Set("name", symbol)
	q.Set("date_from", ivl.Start.Format(dateLayout))
	q.Set("date_to", ivl.End.Format(dateLayout))
	q.Set("category", c.Category)
	q.Set("frequency", c.Frequency)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &pricefeed.TransientError{Source: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if err := pricefeed.StatusError(c.Name(), resp.StatusCode); err != nil {
		return nil, err
	}

	var body PriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &pricefeed.SchemaError{Source: c.Name(), Detail: "decode: " + err.Error()}
	}
	if len(body.Output) == 0 {
		return nil, &pricefeed.SchemaError{Source: c.Name(), Detail: "empty output"}
	}

	series := body.Output[0]
	currency := currencyFromUnit(series.Unit)

	points := make([]pricefeed.PricePoint, 0, len(series.Prices))
	for _, entry := range series.Prices {
		date, err := time.Parse(dateLayout, entry.Date)
		if err != nil {
			return nil, &pricefeed.SchemaError{Source: c.Name(), Detail: fmt.Sprintf("bad date %q", entry.Date)}
		}
		points = append(points, pricefeed.PricePoint{
			Date:     date,
			Price:    entry.Price,
			Currency: currency,
			Unit:     series.Unit,
			PriceUSD: directUSD(entry.Price, currency),
		})
	}

	return points, nil
}

// currencyFromUnit extracts the currency code from a unit like "USD/t".
func currencyFromUnit(unit string) string {
	code, _, _ := strings.Cut(unit, "/")
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "USD"
	}
	return code
}

func directUSD(price decimal.Decimal, currency string) decimal.NullDecimal {
	if currency != "USD" {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: price, Valid: true}
}
