package verification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"profilecheck/internal/registry"
	"profilecheck/pkg/domain"
)

// State is the lifecycle position of an Operation.
type State string

const (
	StateRequested State = "requested"
	StateResolved  State = "resolved"
	StateFailed    State = "failed"
)

// Operation tracks one verification from the registry query to its
// continuation. It moves from StateRequested to exactly one of StateResolved
// or StateFailed and never changes afterwards.
type Operation struct {
	ID        uuid.UUID
	Account   domain.AccountID
	Deposit   domain.Amount
	Endpoint  registry.Endpoint
	CreatedAt time.Time

	mu         sync.RWMutex
	state      State
	outcome    *Outcome
	err        error
	finishedAt time.Time
	done       chan struct{}
}

func newOperation(req Request, endpoint registry.Endpoint, at time.Time) *Operation {
	return &Operation{
		ID:        uuid.New(),
		Account:   req.Account,
		Deposit:   req.Deposit,
		Endpoint:  endpoint,
		CreatedAt: at,
		state:     StateRequested,
		done:      make(chan struct{}),
	}
}

// State returns the current state.
func (o *Operation) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Done is closed once the operation leaves StateRequested.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Result returns the outcome or fatal error. Both are nil while pending.
func (o *Operation) Result() (*Outcome, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.outcome, o.err
}

// FinishedAt is zero while pending.
func (o *Operation) FinishedAt() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.finishedAt
}

// Wait blocks until the operation finishes or ctx ends.
func (o *Operation) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-o.done:
		return o.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (o *Operation) resolve(outcome *Outcome, at time.Time) bool {
	return o.finish(StateResolved, outcome, nil, at)
}

func (o *Operation) fail(err error, at time.Time) bool {
	return o.finish(StateFailed, nil, err, at)
}

func (o *Operation) finish(state State, outcome *Outcome, err error, at time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateRequested {
		return false
	}
	o.state = state
	o.outcome = outcome
	o.err = err
	o.finishedAt = at
	close(o.done)
	return true
}

type operationIDKey struct{}

func withOperationID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, operationIDKey{}, id.String())
}

func operationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(operationIDKey{}).(string)
	return id
}
