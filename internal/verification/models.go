package verification

import (
	"time"

	"profilecheck/internal/accounting"
	"profilecheck/internal/profile"
	"profilecheck/pkg/domain"
)

// Request asks for Account's social profile to be checked for completeness.
type Request struct {
	Account domain.AccountID
	// Signer selects the registry network. Empty means Account.
	Signer  domain.AccountID
	Deposit domain.Amount
}

// QueryResult is the answer to the single registry read of one operation:
// either the raw document bytes or the failure that ended the call.
type QueryResult struct {
	Document []byte
	Err      error
}

// RejectReason says why a verification resolved to not verified.
type RejectReason string

const (
	RejectRegistryError     RejectReason = "registry_error"
	RejectMalformedDocument RejectReason = "malformed_document"
	RejectIncompleteProfile RejectReason = "incomplete_profile"
)

// Outcome is the resolved result of a verification.
type Outcome struct {
	Account  domain.AccountID
	Verified bool
	// VerifiedAt is set only when Verified.
	VerifiedAt time.Time
	Reason     RejectReason
	Missing    []profile.Criterion
	Settlement accounting.Settlement
	Refund     domain.Amount
}

// Removal is the result of deleting an account's own verification record.
type Removal struct {
	Account    domain.AccountID
	Removed    bool
	Settlement accounting.Settlement
	Refund     domain.Amount
}
