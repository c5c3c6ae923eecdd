// Package accounting charges callers the storage cost of their ledger
// mutations and computes what to refund from the attached deposit.
package accounting

import (
	"errors"
	"fmt"

	"profilecheck/pkg/domain"
	dErrors "profilecheck/pkg/domain-errors"
)

// DefaultByteCostRate is the price of one byte of storage in the smallest
// currency unit (10^19, i.e. 1e-5 of a whole token at 24 decimals).
var DefaultByteCostRate = domain.MustAmount("10000000000000000000")

// InsufficientDepositError aborts a mutation whose storage growth costs more
// than was attached.
type InsufficientDepositError struct {
	Required domain.Amount
	Attached domain.Amount
}

func (e *InsufficientDepositError) Error() string {
	return fmt.Sprintf("Must attach %s to cover storage", e.Required)
}

// Direction describes how a mutation changed storage usage.
type Direction string

const (
	DirectionGrowth    Direction = "growth"
	DirectionShrink    Direction = "shrink"
	DirectionUnchanged Direction = "unchanged"
)

// Settlement is the outcome of charging one mutation.
type Settlement struct {
	Direction Direction
	// Bytes is the absolute usage change.
	Bytes uint64
	// Charged is the cost retained for growth, zero otherwise.
	Charged domain.Amount
	// Freed is the cost released by shrinkage, zero otherwise.
	Freed domain.Amount
	// Refund is the amount owed back to the caller.
	Refund domain.Amount
}

// Accountant prices storage.
type Accountant struct {
	rate domain.Amount
}

// New creates an accountant charging rate per byte.
func New(rate domain.Amount) *Accountant {
	return &Accountant{rate: rate}
}

// Rate returns the per-byte price.
func (a *Accountant) Rate() domain.Amount {
	return a.rate
}

// CostOf returns the price of n bytes.
func (a *Accountant) CostOf(n uint64) (domain.Amount, error) {
	return a.rate.MulBytes(n)
}

// Settle charges the usage change from before to after against attached.
// Growth beyond the attached deposit is an InsufficientDepositError; arithmetic
// overflow is returned as domain.ErrAmountOverflow or domain.ErrAmountUnderflow.
func (a *Accountant) Settle(before, after uint64, attached domain.Amount) (Settlement, error) {
	switch {
	case after > before:
		bytes := after - before
		required, err := a.CostOf(bytes)
		if err != nil {
			return Settlement{}, fmt.Errorf("price %d bytes: %w", bytes, err)
		}
		if attached.Cmp(required) < 0 {
			return Settlement{}, &InsufficientDepositError{Required: required, Attached: attached}
		}
		refund, err := attached.Sub(required)
		if err != nil {
			return Settlement{}, err
		}
		return Settlement{Direction: DirectionGrowth, Bytes: bytes, Charged: required, Refund: refund}, nil

	case after < before:
		bytes := before - after
		freed, err := a.CostOf(bytes)
		if err != nil {
			return Settlement{}, fmt.Errorf("price %d bytes: %w", bytes, err)
		}
		refund, err := attached.Add(freed)
		if err != nil {
			return Settlement{}, err
		}
		return Settlement{Direction: DirectionShrink, Bytes: bytes, Freed: freed, Refund: refund}, nil

	default:
		return Settlement{Direction: DirectionUnchanged, Refund: attached}, nil
	}
}

// ToDomainError maps settlement failures to coded errors for transports.
func ToDomainError(err error) error {
	var insufficient *InsufficientDepositError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &insufficient):
		return dErrors.New(dErrors.CodeInsufficientDeposit, insufficient.Error())
	case errors.Is(err, domain.ErrAmountOverflow), errors.Is(err, domain.ErrAmountUnderflow):
		return dErrors.Wrap(err, dErrors.CodeInternal, "storage cost arithmetic failed")
	}
	return err
}
