// Package settlement delivers refunds owed to callers.
package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"profilecheck/pkg/domain"
)

// Reason explains why a transfer was issued.
type Reason string

const (
	// ReasonDepositSurplus returns the unused part of an attached deposit.
	ReasonDepositSurplus Reason = "deposit_surplus"
	// ReasonStorageFreed returns the deposit plus the cost of freed storage.
	ReasonStorageFreed Reason = "storage_freed"
	// ReasonNotVerified returns the whole deposit of a request that changed nothing.
	ReasonNotVerified Reason = "not_verified"
	// ReasonAborted returns the whole deposit of a request that was rolled back or refused.
	ReasonAborted Reason = "aborted"
)

// Transfer is an instruction to credit Recipient with Amount.
type Transfer struct {
	ID          uuid.UUID        `json:"id"`
	Recipient   domain.AccountID `json:"recipient"`
	Amount      domain.Amount    `json:"amount"`
	Reason      Reason           `json:"reason"`
	OperationID string           `json:"operation_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewTransfer builds a transfer with a fresh id.
func NewTransfer(recipient domain.AccountID, amount domain.Amount, reason Reason, at time.Time) Transfer {
	return Transfer{
		ID:        uuid.New(),
		Recipient: recipient,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: at,
	}
}

// Transferer sends funds. Callers never submit zero-amount transfers.
type Transferer interface {
	Transfer(ctx context.Context, t Transfer) error
}
