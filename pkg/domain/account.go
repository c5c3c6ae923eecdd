package domain

import (
	"regexp"
	"strings"

	dErrors "profilecheck/pkg/domain-errors"
)

// AccountID names a party on the network. It is the ledger key for verification
// records and the recipient of refunds.
//
// Invariants:
//   - 2 to 64 characters
//   - lowercase letters, digits and the separators '-', '_', '.'
//   - separators never lead, trail or follow one another
type AccountID string

const (
	minAccountIDLen = 2
	maxAccountIDLen = 64
)

var accountIDPattern = regexp.MustCompile(`^(([a-z\d]+[-_])*[a-z\d]+\.)*([a-z\d]+[-_])*[a-z\d]+$`)

// ParseAccountID validates s and returns it as an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id is required")
	}
	if len(s) < minAccountIDLen || len(s) > maxAccountIDLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id must be 2-64 characters")
	}
	if !accountIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid account id: "+s)
	}
	return AccountID(s), nil
}

// MustAccountID parses s and panics if it is invalid. Use only in tests and
// for compiled-in constants.
func MustAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (a AccountID) String() string {
	return string(a)
}

// IsNil reports whether a is the zero value.
func (a AccountID) IsNil() bool {
	return a == ""
}

// HasSuffix reports whether a ends with suffix, e.g. the ".near" top-level account.
func (a AccountID) HasSuffix(suffix string) bool {
	return strings.HasSuffix(string(a), suffix)
}
