/**
 * @description
 * Common contract shared by every upstream price API adapter.
 * Each adapter lives in its own subpackage and normalizes that API's
 * response into PricePoint values; the sync pipeline only ever sees this
 * package's types.
 *
 * @dependencies
 * - github.com/shopspring/decimal
 */

package pricefeed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical source names, matching the api_sources rows seeded at startup.
const (
	SourceMetals      = "Metals API"
	SourceCommodities = "Commodities API"
	SourceCommoditic  = "Commoditic API"
)

// PricePoint is one normalized daily price observation. Every adapter emits
// this shape regardless of the upstream field names.
type PricePoint struct {
	Date     time.Time           `json:"date"`
	Price    decimal.Decimal     `json:"price"`
	Currency string              `json:"currency"`
	Unit     string              `json:"unit"`         // upstream measure note, e.g. "per ounce", "USD/t"
	PriceUSD decimal.NullDecimal `json:"price_in_usd"` // derived at normalization time, invalid when not derivable
}

// Validate reports whether the point is writable.
func (p PricePoint) Validate() error {
	if p.Date.IsZero() {
		return &ValidationError{Detail: "missing date"}
	}
	if !p.Price.IsPositive() {
		return &ValidationError{Detail: "non-positive price " + p.Price.String()}
	}
	if p.Currency == "" {
		return &ValidationError{Detail: "missing currency"}
	}
	return nil
}

// Source is implemented once per upstream price API.
type Source interface {
	// Name returns the canonical source name.
	Name() string
	// MaxSpanDays returns the widest date range one request may cover.
	// 0 means unbounded (the whole range fits in a single call).
	MaxSpanDays() int
	// FetchDaily returns the normalized daily prices for one symbol over a
	// closed date interval.
	FetchDaily(ctx context.Context, symbol string, ivl Interval) ([]PricePoint, error)
}

// QuotesInverse reports whether a source quotes rates as units per USD,
// in which case the USD price is the reciprocal of the rate.
func QuotesInverse(source string) bool {
	switch source {
	case SourceMetals, SourceCommodities:
		return true
	}
	return false
}

// InvertRate derives a USD price from a units-per-USD rate. A zero rate is
// not derivable and yields an invalid decimal rather than a division error.
func InvertRate(rate decimal.Decimal) decimal.NullDecimal {
	if rate.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromInt(1).Div(rate), Valid: true}
}
