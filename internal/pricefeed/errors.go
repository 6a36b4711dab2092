/**
 * @description
 * Error taxonomy of the price sync pipeline. The pipeline decides per unit
 * of work (symbol x sub-interval) whether to retry, skip or abort based on
 * which of these an adapter returned.
 */

package pricefeed

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError wraps a network, transport or rate-limit failure.
// The caller may retry the same request.
type TransientError struct {
	Source string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient fetch failure: %v", e.Source, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// SchemaError signals a response body that does not match the upstream
// contract. Retrying will not help; the unit is skipped.
type SchemaError struct {
	Source string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %s", e.Source, e.Detail)
}

// AuthError signals rejected credentials. It aborts the whole run since
// every further request for the source would fail the same way.
type AuthError struct {
	Source string
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication rejected (status %d)", e.Source, e.Status)
}

// ValidationError marks a single record that cannot be written.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %s", e.Detail)
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsAuth reports whether err is a credential rejection.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// StatusError classifies a non-200 HTTP status into the taxonomy.
// Returns nil for 200.
func StatusError(source string, status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Source: source, Status: status}
	case status == http.StatusTooManyRequests || status >= 500:
		return &TransientError{Source: source, Err: fmt.Errorf("status %d", status)}
	default:
		return &SchemaError{Source: source, Detail: fmt.Sprintf("unexpected status %d", status)}
	}
}
