package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"profilecheck/internal/ledger/kv"
	"profilecheck/pkg/domain"
)

// StorageKeyVerifiedProfiles is the partition byte reserved for this ledger.
// Keys are partition ‖ u32le(len(account)) ‖ account; values are u64le unix
// milliseconds.
const StorageKeyVerifiedProfiles byte = 0x01

const (
	keyHeaderLen   = 1 + 4
	timestampBytes = 8
)

var (
	ErrMalformedKey   = errors.New("ledger: malformed record key")
	ErrMalformedValue = errors.New("ledger: malformed record value")
	ErrTimestampRange = errors.New("ledger: timestamp before unix epoch")
)

// RecordKey returns the storage key for account.
func RecordKey(account domain.AccountID) []byte {
	key := make([]byte, keyHeaderLen+len(account))
	key[0] = StorageKeyVerifiedProfiles
	binary.LittleEndian.PutUint32(key[1:keyHeaderLen], uint32(len(account)))
	copy(key[keyHeaderLen:], account)
	return key
}

// PartitionPrefix selects every key in this ledger.
func PartitionPrefix() []byte {
	return []byte{StorageKeyVerifiedProfiles}
}

// DecodeKey recovers the account from a record key.
func DecodeKey(key []byte) (domain.AccountID, error) {
	if len(key) < keyHeaderLen || key[0] != StorageKeyVerifiedProfiles {
		return "", ErrMalformedKey
	}
	n := binary.LittleEndian.Uint32(key[1:keyHeaderLen])
	if uint64(len(key)-keyHeaderLen) != uint64(n) {
		return "", fmt.Errorf("%w: length prefix %d, payload %d", ErrMalformedKey, n, len(key)-keyHeaderLen)
	}
	return domain.AccountID(key[keyHeaderLen:]), nil
}

// EncodeTimestamp stores t with millisecond precision.
func EncodeTimestamp(t time.Time) ([]byte, error) {
	ms := t.UnixMilli()
	if ms < 0 {
		return nil, ErrTimestampRange
	}
	b := make([]byte, timestampBytes)
	binary.LittleEndian.PutUint64(b, uint64(ms))
	return b, nil
}

// DecodeTimestamp reverses EncodeTimestamp. Times are returned in UTC.
func DecodeTimestamp(b []byte) (time.Time, error) {
	if len(b) != timestampBytes {
		return time.Time{}, fmt.Errorf("%w: %d bytes", ErrMalformedValue, len(b))
	}
	return time.UnixMilli(int64(binary.LittleEndian.Uint64(b))).UTC(), nil
}

// RecordFootprint is the storage usage of one record for account.
func RecordFootprint(account domain.AccountID) uint64 {
	return uint64(keyHeaderLen + len(account) + timestampBytes + kv.RecordOverhead)
}
