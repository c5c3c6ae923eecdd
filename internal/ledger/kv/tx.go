package kv

import (
	"context"
	"fmt"
)

type staged struct {
	value   []byte
	deleted bool
}

// Tx is a write overlay on a Backend. Reads see the transaction's own writes
// first. A Tx is only valid inside the RunInTx callback that created it.
type Tx struct {
	ctx     context.Context
	backend Backend
	base    uint64
	delta   int64
	writes  map[string]staged
	order   []string
}

func newTx(ctx context.Context, backend Backend, base uint64) *Tx {
	return &Tx{
		ctx:     ctx,
		backend: backend,
		base:    base,
		writes:  make(map[string]staged),
	}
}

// Context returns the transaction's context.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Get returns the value visible to this transaction.
func (tx *Tx) Get(key []byte) ([]byte, bool, error) {
	if w, ok := tx.writes[string(key)]; ok {
		if w.deleted {
			return nil, false, nil
		}
		return append([]byte(nil), w.value...), true, nil
	}
	v, ok, err := tx.backend.Get(tx.ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("kv get: %w", err)
	}
	return v, ok, nil
}

// Has reports whether key is visible to this transaction.
func (tx *Tx) Has(key []byte) (bool, error) {
	_, ok, err := tx.Get(key)
	return ok, err
}

// Put stages key=value, replacing any existing value.
func (tx *Tx) Put(key, value []byte) error {
	old, existed, err := tx.Get(key)
	if err != nil {
		return err
	}
	next := tx.delta + Footprint(key, value)
	if existed {
		next -= Footprint(key, old)
	}
	if err := tx.checkUsage(next); err != nil {
		return err
	}
	tx.delta = next
	tx.stage(key, staged{value: append([]byte(nil), value...)})
	return nil
}

// Delete stages removal of key and reports whether it was present.
func (tx *Tx) Delete(key []byte) (bool, error) {
	old, existed, err := tx.Get(key)
	if err != nil || !existed {
		return false, err
	}
	next := tx.delta - Footprint(key, old)
	if err := tx.checkUsage(next); err != nil {
		return false, err
	}
	tx.delta = next
	tx.stage(key, staged{deleted: true})
	return true, nil
}

// Usage is the footprint the store would have if this transaction committed now.
func (tx *Tx) Usage() uint64 {
	return uint64(int64(tx.base) + tx.delta)
}

func (tx *Tx) checkUsage(delta int64) error {
	if int64(tx.base)+delta < 0 {
		return ErrUsageUnderflow
	}
	return nil
}

func (tx *Tx) stage(key []byte, w staged) {
	k := string(key)
	if _, seen := tx.writes[k]; !seen {
		tx.order = append(tx.order, k)
	}
	tx.writes[k] = w
}

func (tx *Tx) batch() *Batch {
	b := &Batch{UsageDelta: tx.delta, Ops: make([]Op, 0, len(tx.order))}
	for _, k := range tx.order {
		w := tx.writes[k]
		b.Ops = append(b.Ops, Op{Key: []byte(k), Value: w.value, Delete: w.deleted})
	}
	return b
}
