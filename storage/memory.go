package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Storage. Entries do not survive the process and
// are intended for tests and ephemeral memoization.
type Memory struct {
	mu   sync.RWMutex
	tags map[string]map[string][]byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{tags: make(map[string]map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *Memory) Get(_ context.Context, tag string, digest []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.tags[tag][string(digest)]
	if !ok {
		return nil, false, nil
	}
	return clone(value), true, nil
}

// Set stores a copy of value.
func (m *Memory) Set(_ context.Context, tag string, digest, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, ok := m.tags[tag]
	if !ok {
		entries = make(map[string][]byte)
		m.tags[tag] = entries
	}
	entries[string(digest)] = clone(value)
	return nil
}

// DeleteAllWithTag drops the namespace. Idempotent.
func (m *Memory) DeleteAllWithTag(_ context.Context, tag string) error {
	m.mu.Lock()
	delete(m.tags, tag)
	m.mu.Unlock()
	return nil
}

// Len reports the number of entries stored under tag.
func (m *Memory) Len(tag string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tags[tag])
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error {
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var (
	_ Storage = (*Memory)(nil)
	_ Pinger  = (*Memory)(nil)
)
