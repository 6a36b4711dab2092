/**
 * @description
 * Response types for the Commodities API timeseries and symbols endpoints.
 *
 * @notes
 * - Same timeseries shape as the Metals API plus a per-symbol unit map.
 * - The symbols endpoint returns a flat {symbol: display name} object.
 */

package commoditiesapi

import "github.com/shopspring/decimal"

// TimeseriesResponse is the wire shape of GET /api/timeseries
type TimeseriesResponse struct {
	Success bool                                  `json:"success"`
	Rates   map[string]map[string]decimal.Decimal `json:"rates"`
	Units   map[string]string                     `json:"unit"`
	Error   *APIError                             `json:"error,omitempty"`
}

// APIError is the in-body error object some responses carry
type APIError struct {
	Code int    `json:"code"`
	Info string `json:"info"`
}
