package common

import (
	"errors"
	"fmt"
)

// Market data error taxonomy. These are the only failure categories the
// valuation core surfaces to callers; everything upstream (HTTP status codes,
// parse failures, timeouts) is folded into ErrUpstreamUnavailable.
var (
	// ErrMarketDisabled indicates the market-data subsystem is administratively
	// off. Never retried, surfaced verbatim.
	ErrMarketDisabled = errors.New("market data is disabled")

	// ErrUpstreamUnavailable indicates a provider call failed (network, parse,
	// timeout). The price cache may mask this with a stale hit.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrFxRateNotFound indicates a currency conversion was required but no
	// cached rate exists. Always a hard failure, never an implicit 1:1.
	ErrFxRateNotFound = errors.New("fx rate not found in cache")

	// ErrSettingNotFound indicates a settings key has never been written.
	// Callers with a configured default fall back to it; store failures do not
	// carry this sentinel and must propagate.
	ErrSettingNotFound = errors.New("setting not found")
)

// ValidationError reports malformed input rejected before any computation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsMarketDisabled reports whether err is (or wraps) ErrMarketDisabled.
func IsMarketDisabled(err error) bool {
	return errors.Is(err, ErrMarketDisabled)
}

// IsUpstreamUnavailable reports whether err is (or wraps) ErrUpstreamUnavailable.
func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

// IsFxRateNotFound reports whether err is (or wraps) ErrFxRateNotFound.
func IsFxRateNotFound(err error) bool {
	return errors.Is(err, ErrFxRateNotFound)
}

// IsSettingNotFound reports whether err is (or wraps) ErrSettingNotFound.
func IsSettingNotFound(err error) bool {
	return errors.Is(err, ErrSettingNotFound)
}
