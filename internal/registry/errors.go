package registry

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for registry reads.
type ErrorCategory string

const (
	// ErrorTimeout indicates the registry took longer than the query budget.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the registry answered with bytes we cannot decode.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorProviderOutage indicates the RPC node is unreachable or failing.
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorContractMismatch indicates the RPC or contract interface changed,
	// or the contract call itself failed.
	ErrorContractMismatch ErrorCategory = "contract_mismatch"

	// ErrorNotFound indicates the registry contract account does not exist.
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates the RPC node throttled us.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected local failure.
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps registry failures with a normalized category.
type Error struct {
	Category  ErrorCategory
	Endpoint  string
	Message   string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry %s [%s]: %s: %v", e.Endpoint, e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("registry %s [%s]: %s", e.Endpoint, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a categorized registry error.
func NewError(category ErrorCategory, endpoint, message string, err error) *Error {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &Error{
		Category:  category,
		Endpoint:  endpoint,
		Message:   message,
		Err:       err,
		Retryable: retryable,
	}
}

// IsRetryable reports whether err is a transient registry failure. Queries are
// never retried automatically; callers may surface this to clients.
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// CategoryOf extracts the category from err, ErrorInternal when uncategorized.
func CategoryOf(err error) ErrorCategory {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ErrorInternal
}
