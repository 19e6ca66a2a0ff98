package storage

import (
	"context"
	"reflect"
)

// Mode identifies which calling convention a Dispatcher uses.
type Mode int

const (
	// ModeBlocking dispatches through Storage.
	ModeBlocking Mode = iota
	// ModeAsync dispatches through AsyncStorage.
	ModeAsync
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Dispatcher fixes the calling convention of a backend once and exposes it
// as a blocking Storage. Async backends are awaited with cancellation.
type Dispatcher struct {
	mode     Mode
	blocking Storage
	async    AsyncStorage
	backend  any
}

// Dispatch inspects backend and returns a Dispatcher bound to its
// capability. AsyncStorage takes precedence when both are implemented.
// Nil backends, typed or not, are ErrUnsupportedBackend.
func Dispatch(backend any) (*Dispatcher, error) {
	if isNil(backend) {
		return nil, ErrUnsupportedBackend
	}
	switch b := backend.(type) {
	case *Dispatcher:
		return b, nil
	case AsyncStorage:
		return &Dispatcher{mode: ModeAsync, async: b, backend: backend}, nil
	case Storage:
		return &Dispatcher{mode: ModeBlocking, blocking: b, backend: backend}, nil
	default:
		return nil, ErrUnsupportedBackend
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Mode returns the dispatch mode selected at construction.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// Backend returns the wrapped backend.
func (d *Dispatcher) Backend() any {
	return d.backend
}

// Get retrieves (tag, digest) from the backend.
func (d *Dispatcher) Get(ctx context.Context, tag string, digest []byte) ([]byte, bool, error) {
	if d.mode == ModeBlocking {
		return d.blocking.Get(ctx, tag, digest)
	}
	select {
	case res, ok := <-d.async.GetAsync(ctx, tag, digest):
		if !ok {
			return nil, false, ErrNoResult
		}
		return res.Value, res.Found, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Set stores value under (tag, digest).
func (d *Dispatcher) Set(ctx context.Context, tag string, digest, value []byte) error {
	if d.mode == ModeBlocking {
		return d.blocking.Set(ctx, tag, digest, value)
	}
	return awaitErr(ctx, d.async.SetAsync(ctx, tag, digest, value))
}

// DeleteAllWithTag removes every entry stored under tag.
func (d *Dispatcher) DeleteAllWithTag(ctx context.Context, tag string) error {
	if d.mode == ModeBlocking {
		return d.blocking.DeleteAllWithTag(ctx, tag)
	}
	return awaitErr(ctx, d.async.DeleteAllWithTagAsync(ctx, tag))
}

// Ping forwards to the backend when it implements Pinger.
func (d *Dispatcher) Ping(ctx context.Context) error {
	if p, ok := d.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func awaitErr(ctx context.Context, ch <-chan error) error {
	select {
	case err, ok := <-ch:
		if !ok {
			return ErrNoResult
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ Storage = (*Dispatcher)(nil)
	_ Pinger  = (*Dispatcher)(nil)
)
