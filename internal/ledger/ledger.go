// Package ledger is the durable map from account to the time it last passed
// the profile completeness check.
package ledger

import (
	"context"
	"fmt"
	"time"

	"profilecheck/internal/ledger/kv"
	"profilecheck/pkg/domain"
	"profilecheck/pkg/platform/sentinel"
)

// Ledger reads and mutates verification records on a kv.Store.
type Ledger struct {
	store *kv.Store
}

// New wraps store. The ledger owns partition StorageKeyVerifiedProfiles.
func New(store *kv.Store) *Ledger {
	return &Ledger{store: store}
}

// Has reports whether account has a record.
func (l *Ledger) Has(ctx context.Context, account domain.AccountID) (bool, error) {
	_, ok, err := l.store.Get(ctx, RecordKey(account))
	if err != nil {
		return false, fmt.Errorf("read verification record: %w", err)
	}
	return ok, nil
}

// Fetch returns the record for account, or sentinel.ErrNotFound.
func (l *Ledger) Fetch(ctx context.Context, account domain.AccountID) (*VerificationRecord, error) {
	raw, ok, err := l.store.Get(ctx, RecordKey(account))
	if err != nil {
		return nil, fmt.Errorf("read verification record: %w", err)
	}
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return toRecord(account, raw)
}

// Usage returns the committed storage footprint of the whole store.
func (l *Ledger) Usage(ctx context.Context) (uint64, error) {
	return l.store.Usage(ctx)
}

// RunInTx runs fn in a transaction serialized per account. Writes commit only
// if fn returns nil.
func (l *Ledger) RunInTx(ctx context.Context, account domain.AccountID, fn func(tx *Tx) error) error {
	return l.store.RunInTx(ctx, account.String(), func(t *kv.Tx) error {
		return fn(&Tx{kv: t})
	})
}

// Tx is the ledger view of a kv transaction.
type Tx struct {
	kv *kv.Tx
}

// Usage is the storage footprint including this transaction's staged writes.
func (t *Tx) Usage() uint64 {
	return t.kv.Usage()
}

// Has reports whether account has a record as seen by this transaction.
func (t *Tx) Has(account domain.AccountID) (bool, error) {
	return t.kv.Has(RecordKey(account))
}

// Upsert records that account passed the check at verifiedAt, replacing any
// earlier record.
func (t *Tx) Upsert(account domain.AccountID, verifiedAt time.Time) error {
	value, err := EncodeTimestamp(verifiedAt)
	if err != nil {
		return err
	}
	return t.kv.Put(RecordKey(account), value)
}

// Remove deletes the record for account and reports whether one existed.
func (t *Tx) Remove(account domain.AccountID) (bool, error) {
	return t.kv.Delete(RecordKey(account))
}

func toRecord(account domain.AccountID, raw []byte) (*VerificationRecord, error) {
	at, err := DecodeTimestamp(raw)
	if err != nil {
		return nil, fmt.Errorf("decode record for %s: %w", account, err)
	}
	return &VerificationRecord{
		AccountID:  account,
		CheckType:  CheckCompleteSocialProfile,
		VerifiedAt: at,
	}, nil
}

// Scan calls fn for every record held by a LevelDB backend, for offline inspection.
func Scan(backend *kv.LevelDBBackend, fn func(*VerificationRecord) error) error {
	return backend.ForEach(PartitionPrefix(), func(key, value []byte) error {
		account, err := DecodeKey(key)
		if err != nil {
			return err
		}
		rec, err := toRecord(account, value)
		if err != nil {
			return err
		}
		return fn(rec)
	})
}
