/**
 * @description
 * Response types for the Metals API timeseries endpoint.
 *
 * @notes
 * - Rates arrive keyed by date, then by symbol, quoted as units per USD.
 * - The service reports quota and auth problems either via HTTP status or
 *   via success=false plus an error object on a 200 response.
 */

package metalsapi

import "github.com/shopspring/decimal"

// TimeseriesResponse is the wire shape of GET /api/timeseries
type TimeseriesResponse struct {
	Success bool                                  `json:"success"`
	Rates   map[string]map[string]decimal.Decimal `json:"rates"`
	Error   *APIError                             `json:"error,omitempty"`
}

// APIError is the in-body error object some responses carry
type APIError struct {
	Code int    `json:"code"`
	Info string `json:"info"`
}
