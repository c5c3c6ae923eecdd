package settlement

import (
	"context"
	"fmt"
	"sync"

	"profilecheck/pkg/domain"
)

// Book credits transfers to in-memory balances. It backs development mode
// and tests.
type Book struct {
	mu       sync.RWMutex
	balances map[domain.AccountID]domain.Amount
	history  []Transfer
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{balances: make(map[domain.AccountID]domain.Amount)}
}

func (b *Book) Transfer(_ context.Context, t Transfer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next, err := b.balances[t.Recipient].Add(t.Amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", t.Recipient, err)
	}
	b.balances[t.Recipient] = next
	b.history = append(b.history, t)
	return nil
}

// Balance returns the total credited to account.
func (b *Book) Balance(account domain.AccountID) domain.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[account]
}

// Transfers returns every transfer in the order received.
func (b *Book) Transfers() []Transfer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Transfer(nil), b.history...)
}
