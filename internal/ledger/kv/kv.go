// Package kv is the transactional key-value layer under the verification ledger.
//
// A Store serializes writers per lock key, stages their writes in a Tx overlay,
// and applies the staged batch to a Backend in one atomic step. Every Tx tracks
// the storage footprint it would produce, so callers can measure usage
// immediately before and after a mutation.
package kv

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/sasha-s/go-deadlock"

	dErrors "profilecheck/pkg/domain-errors"
)

// RecordOverhead is the fixed per-entry cost added to len(key)+len(value)
// when computing storage usage.
const RecordOverhead = 40

const (
	numShards        = 128
	defaultTxTimeout = 5 * time.Second
)

// ErrUsageUnderflow means a batch would drive tracked usage below zero.
var ErrUsageUnderflow = errors.New("kv: storage usage underflow")

// Footprint is the usage charged for one stored entry.
func Footprint(key, value []byte) int64 {
	return int64(len(key) + len(value) + RecordOverhead)
}

// Op is one staged write. A nil Value with Delete set removes the key.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Batch is the set of writes a transaction commits, in staging order, with the
// usage change they cause.
type Batch struct {
	Ops        []Op
	UsageDelta int64
}

// Empty reports whether the batch changes nothing.
func (b *Batch) Empty() bool {
	return len(b.Ops) == 0
}

// Backend is durable storage. Apply must persist the ops and the usage delta
// together or not at all.
type Backend interface {
	Get(ctx context.Context, key []byte) ([]byte, bool, error)
	Usage(ctx context.Context) (uint64, error)
	Apply(ctx context.Context, batch *Batch) error
	Close() error
}

// Store coordinates transactions over a Backend.
type Store struct {
	backend Backend
	shards  [numShards]deadlock.Mutex
	timeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTxTimeout bounds transactions whose context carries no deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewStore wraps backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInTx runs fn inside a transaction serialized with every other transaction
// sharing lockKey. The staged writes are applied when fn returns nil and
// discarded otherwise.
func (s *Store) RunInTx(ctx context.Context, lockKey string, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	mu := &s.shards[shardFor(lockKey)]
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	base, err := s.backend.Usage(ctx)
	if err != nil {
		return fmt.Errorf("read storage usage: %w", err)
	}
	tx := newTx(ctx, s.backend, base)
	if err := fn(tx); err != nil {
		return err
	}

	batch := tx.batch()
	if batch.Empty() {
		return nil
	}
	if err := s.backend.Apply(ctx, batch); err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	return nil
}

// Get reads a committed value outside any transaction.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	return s.backend.Get(ctx, key)
}

// Usage returns the committed storage footprint.
func (s *Store) Usage(ctx context.Context) (uint64, error) {
	return s.backend.Usage(ctx)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % numShards
}
