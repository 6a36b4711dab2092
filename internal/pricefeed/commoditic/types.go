/**
 * @description
 * Response types for the Commoditic API price endpoint.
 *
 * @notes
 * - Prices arrive as a series per queried name under "output", each with a
 *   unit string like "USD/t" and direct daily quotes in that unit.
 */

package commoditic

import "github.com/shopspring/decimal"

// PriceResponse is the wire shape of GET /v1/prices
type PriceResponse struct {
	Output []PriceSeries `json:"output"`
}

// PriceSeries carries the daily quotes of one material
type PriceSeries struct {
	Name   string       `json:"name"`
	Unit   string       `json:"unit"`
	Prices []PriceEntry `json:"prices"`
}

// PriceEntry is one daily quote
type PriceEntry struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}
