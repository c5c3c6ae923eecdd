package kv

import (
	"encoding/binary"
	"fmt"
)

// MetaPartition prefixes backend bookkeeping keys. Data partitions must use
// other leading bytes.
const MetaPartition byte = 0x00

var usageKey = []byte{MetaPartition, 'u', 's', 'a', 'g', 'e'}

func encodeUsage(u uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, u)
	return b
}

func decodeUsage(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("kv: usage record has %d bytes, want 8", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

func applyDelta(usage uint64, delta int64) (uint64, error) {
	next := int64(usage) + delta
	if next < 0 {
		return 0, ErrUsageUnderflow
	}
	return uint64(next), nil
}
