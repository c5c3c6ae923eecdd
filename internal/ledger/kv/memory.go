package kv

import (
	"context"
	"sync"

	"profilecheck/pkg/platform/sentinel"
)

// MemoryBackend keeps entries in a map. Data is lost on restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string][]byte
	usage   uint64
	closed  bool
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, sentinel.ErrClosed
	}
	v, ok := m.entries[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryBackend) Usage(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, sentinel.ErrClosed
	}
	return m.usage, nil
}

func (m *MemoryBackend) Apply(_ context.Context, batch *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return sentinel.ErrClosed
	}
	next, err := applyDelta(m.usage, batch.UsageDelta)
	if err != nil {
		return err
	}
	for _, op := range batch.Ops {
		if op.Delete {
			delete(m.entries, string(op.Key))
			continue
		}
		m.entries[string(op.Key)] = append([]byte(nil), op.Value...)
	}
	m.usage = next
	return nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
