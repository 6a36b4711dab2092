/**
 * @description
 * HTTP client for the Metals API.
 * Fetches daily precious-metal rates over a date range and normalizes them
 * into price points. Rates are quoted as ounces per USD, so the USD price is
 * derived as the reciprocal.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/config
 * - backend/internal/pricefeed
 */

package metalsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/pricefeed"
)

const (
	DefaultTimeout = 10 * time.Second

	dateLayout = "2006-01-02"
	unit       = "per ounce"
)

type Client struct {
	BaseURL    string
	APIKey     string
	MaxSpan    int
	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL: cfg.Sources.MetalsURL,
		APIKey:  cfg.Sources.MetalsKey,
		MaxSpan: cfg.Sources.MetalsMaxSpan,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Name returns the canonical source name
func (c *Client) Name() string {
	return pricefeed.SourceMetals
}

// MaxSpanDays returns the widest date range one timeseries call may cover
func (c *Client) MaxSpanDays() int {
	return c.MaxSpan
}

// FetchDaily fetches the daily rates for one symbol over a closed interval
// and normalizes them.
func (c *Client) FetchDaily(ctx context.Context, symbol string, ivl pricefeed.Interval) ([]pricefeed.PricePoint, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("access_key", c.APIKey)
	q.Set("start_date", ivl.Start.Format(dateLayout))
	q.Set("end_date", ivl.End.Format(dateLayout))
	q.Set("symbols", symbol)
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

	var body TimeseriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &pricefeed.SchemaError{Source: c.Name(), Detail: "decode: " + err.Error()}
	}

	// Quota and auth problems can arrive as an error object on a 200
	if !body.Success && body.Error != nil {
		if body.Error.Code == http.StatusTooManyRequests {
			return nil, &pricefeed.TransientError{Source: c.Name(), Err: fmt.Errorf("rate limited: %s", body.Error.Info)}
		}
		return nil, &pricefeed.SchemaError{Source: c.Name(), Detail: body.Error.Info}
	}
	if body.Rates == nil {
		return nil, &pricefeed.SchemaError{Source: c.Name(), Detail: "missing rates"}
	}

	points := make([]pricefeed.PricePoint, 0, len(body.Rates))
	for dateStr, bySymbol := range body.Rates {
		rate, ok := bySymbol[symbol]
		if !ok {
			continue
		}
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, &pricefeed.SchemaError{Source: c.Name(), Detail: fmt.Sprintf("bad date %q", dateStr)}
		}
		points = append(points, pricefeed.PricePoint{
			Date:     date,
			Price:    rate,
			Currency: "USD",
			Unit:     unit,
			PriceUSD: pricefeed.InvertRate(rate),
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}
