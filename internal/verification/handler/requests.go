package handler

import (
	"strings"

	"profilecheck/pkg/domain"
	dErrors "profilecheck/pkg/domain-errors"
)

// VerifyRequest is the body of POST /v1/verifications.
type VerifyRequest struct {
	// Deposit is a base-10 amount in the smallest currency unit. Empty means zero.
	Deposit string `json:"deposit"`
	// Async returns the pending operation instead of waiting for the outcome.
	Async bool `json:"async"`

	amount domain.Amount
}

func (r *VerifyRequest) Validate() error {
	amount, err := parseDeposit(r.Deposit)
	if err != nil {
		return err
	}
	r.amount = amount
	return nil
}

// Amount is the parsed deposit. Valid after Validate.
func (r *VerifyRequest) Amount() domain.Amount {
	return r.amount
}

// RemoveRequest is the optional body of DELETE /v1/verifications.
type RemoveRequest struct {
	Deposit string `json:"deposit"`

	amount domain.Amount
}

func (r *RemoveRequest) Validate() error {
	amount, err := parseDeposit(r.Deposit)
	if err != nil {
		return err
	}
	r.amount = amount
	return nil
}

func (r *RemoveRequest) Amount() domain.Amount {
	return r.amount
}

func parseDeposit(raw string) (domain.Amount, error) {
	amount, err := domain.ParseAmount(strings.TrimSpace(raw))
	if err != nil {
		return domain.ZeroAmount, dErrors.Wrap(err, dErrors.CodeValidation, "deposit must be a non-negative integer amount")
	}
	return amount, nil
}
