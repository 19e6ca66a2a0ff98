package memo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/zygi/miniperscache/storage"
)

// spyStorage counts backend calls and can fail writes.
type spyStorage struct {
	*storage.Memory
	gets     atomic.Int64
	sets     atomic.Int64
	failSets atomic.Int64
	setErr   error
}

func newSpyStorage() *spyStorage {
	return &spyStorage{Memory: storage.NewMemory()}
}

func (s *spyStorage) Get(ctx context.Context, tag string, digest []byte) ([]byte, bool, error) {
	s.gets.Add(1)
	return s.Memory.Get(ctx, tag, digest)
}

func (s *spyStorage) Set(ctx context.Context, tag string, digest, value []byte) error {
	s.sets.Add(1)
	if s.failSets.Load() > 0 {
		s.failSets.Add(-1)
		return s.setErr
	}
	return s.Memory.Set(ctx, tag, digest, value)
}

var errDiskFull = errors.New("disk full")

// counter records every invocation of a test computation.
type counter struct {
	mu    sync.Mutex
	calls [][]int
}

func (c *counter) record(items []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, append([]int(nil), items...))
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *counter) last() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return nil
	}
	return c.calls[len(c.calls)-1]
}

// testOpts isolates a wrapper from the default registry and database.
func testOpts(t *testing.T, backend any, extra ...Option) []Option {
	t.Helper()
	return append([]Option{WithRegistry(NewRegistry()), WithStorage(backend)}, extra...)
}
