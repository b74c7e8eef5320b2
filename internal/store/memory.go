package store

import (
	"context"
	"sync"
)

// MemoryKV is an in-process backend for tests and single-role demos.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string][]byte{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Close() error { return nil }
