package storage

import "context"

// AsyncAdapter runs the operations of a blocking Storage on their own
// goroutines so it can be used as an AsyncStorage.
type AsyncAdapter struct {
	inner Storage
}

// Async wraps a blocking backend as an AsyncStorage.
func Async(s Storage) *AsyncAdapter {
	return &AsyncAdapter{inner: s}
}

// Unwrap returns the blocking backend.
func (a *AsyncAdapter) Unwrap() Storage {
	return a.inner
}

// GetAsync starts a Get.
func (a *AsyncAdapter) GetAsync(ctx context.Context, tag string, digest []byte) <-chan GetResult {
	out := make(chan GetResult, 1)
	go func() {
		value, found, err := a.inner.Get(ctx, tag, digest)
		out <- GetResult{Value: value, Found: found, Err: err}
	}()
	return out
}

// SetAsync starts a Set.
func (a *AsyncAdapter) SetAsync(ctx context.Context, tag string, digest, value []byte) <-chan error {
	out := make(chan error, 1)
	go func() {
		out <- a.inner.Set(ctx, tag, digest, value)
	}()
	return out
}

// DeleteAllWithTagAsync starts a DeleteAllWithTag.
func (a *AsyncAdapter) DeleteAllWithTagAsync(ctx context.Context, tag string) <-chan error {
	out := make(chan error, 1)
	go func() {
		out <- a.inner.DeleteAllWithTag(ctx, tag)
	}()
	return out
}

// Ping forwards to the inner backend when supported.
func (a *AsyncAdapter) Ping(ctx context.Context) error {
	if p, ok := a.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// NewAsyncFile opens a file backend and wraps it for suspend-capable use.
func NewAsyncFile(cfg FileConfig) (*AsyncAdapter, error) {
	f, err := NewFile(cfg)
	if err != nil {
		return nil, err
	}
	return Async(f), nil
}

var (
	_ AsyncStorage = (*AsyncAdapter)(nil)
	_ Pinger       = (*AsyncAdapter)(nil)
)
