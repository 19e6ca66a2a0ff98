package memo

import (
	"context"

	"github.com/zygi/miniperscache/observe"
)

// AsyncCached is the suspend-capable memoized function. Each Call runs in
// its own goroutine, so independent calls proceed concurrently.
type AsyncCached[R any] struct {
	e  *engine
	fn Computation[R]
}

// NewAsync wraps a computation of either calling convention.
func NewAsync[R any](tag string, fn Computation[R], sig Signature, opts ...Option) (*AsyncCached[R], error) {
	if err := checkComputation(fn, true); err != nil {
		return nil, err
	}
	cfg := newConfig(opts)
	e, err := newEngine(tag, sig, observe.FuncMeta{Kind: observe.KindSingle, Async: true}, cfg)
	if err != nil {
		return nil, err
	}
	if err := e.register(cfg); err != nil {
		return nil, err
	}
	return &AsyncCached[R]{e: e, fn: fn}, nil
}

// Call starts the memoized call and returns a channel that delivers exactly
// one Result. Binding and hashing happen before Call returns, so their
// errors are delivered without any storage access.
func (c *AsyncCached[R]) Call(ctx context.Context, args Args) <-chan Result[R] {
	ctx, scope := c.e.inst.Start(ctx, c.e.meta)

	bound, digest, err := c.e.prepare(args)
	if err != nil {
		scope.Failed(ctx, observe.StageHash, err)
		scope.End(ctx, err)
		var zero R
		return deliver(zero, err)
	}

	ch := make(chan Result[R], 1)
	go func() {
		defer close(ch)
		v, err := runSingle(ctx, c.e, scope, c.fn, bound, digest)
		scope.End(ctx, err)
		ch <- Result[R]{Value: v, Err: err}
	}()
	return ch
}

// Await calls and waits for the result or for ctx to end.
func (c *AsyncCached[R]) Await(ctx context.Context, args Args) (R, error) {
	return await(ctx, c.Call(ctx, args))
}

// Clear deletes every stored result under the wrapper's tag.
func (c *AsyncCached[R]) Clear(ctx context.Context) error {
	return c.e.clear(ctx)
}

// Tag returns the storage namespace of the wrapper.
func (c *AsyncCached[R]) Tag() string {
	return c.e.tag
}

// Digest returns the storage key args would be stored under.
func (c *AsyncCached[R]) Digest(args Args) ([]byte, error) {
	_, digest, err := c.e.prepare(args)
	return digest, err
}

// Info describes the wrapper.
func (c *AsyncCached[R]) Info() Info {
	return c.e.info()
}
