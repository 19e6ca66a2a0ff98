package memo

import (
	"context"
	"time"

	"github.com/zygi/miniperscache/observe"
)

// Cached is a blocking memoized function. Results are keyed by the digest
// of the bound arguments under the wrapper's tag; errors are never stored.
//
// Contract:
//   - Concurrency: Call is safe for concurrent use. Concurrent misses on the
//     same arguments each compute and store; there is no de-duplication.
//   - Errors: backend and serializer errors are returned verbatim. A failed
//     write after a successful computation returns the value and the error.
type Cached[R any] struct {
	e  *engine
	fn Computation[R]
}

// New wraps a blocking computation. It fails with ErrWrongCallingConvention
// when fn is an AsyncFunc; use NewAsync for those.
func New[R any](tag string, fn Computation[R], sig Signature, opts ...Option) (*Cached[R], error) {
	if err := checkComputation(fn, false); err != nil {
		return nil, err
	}
	cfg := newConfig(opts)
	e, err := newEngine(tag, sig, observe.FuncMeta{Kind: observe.KindSingle}, cfg)
	if err != nil {
		return nil, err
	}
	if err := e.register(cfg); err != nil {
		return nil, err
	}
	return &Cached[R]{e: e, fn: fn}, nil
}

// Call returns the stored result for args, computing and storing it on a
// miss.
func (c *Cached[R]) Call(ctx context.Context, args Args) (result R, err error) {
	ctx, scope := c.e.inst.Start(ctx, c.e.meta)
	defer func() { scope.End(ctx, err) }()

	bound, digest, err := c.e.prepare(args)
	if err != nil {
		scope.Failed(ctx, observe.StageHash, err)
		return result, err
	}
	return runSingle(ctx, c.e, scope, c.fn, bound, digest)
}

// Clear deletes every stored result under the wrapper's tag.
func (c *Cached[R]) Clear(ctx context.Context) error {
	return c.e.clear(ctx)
}

// Tag returns the storage namespace of the wrapper.
func (c *Cached[R]) Tag() string {
	return c.e.tag
}

// Digest returns the storage key args would be stored under.
func (c *Cached[R]) Digest(args Args) ([]byte, error) {
	_, digest, err := c.e.prepare(args)
	return digest, err
}

// Info describes the wrapper.
func (c *Cached[R]) Info() Info {
	return c.e.info()
}

// runSingle is the lookup, compute, store sequence shared by the blocking
// and suspend-capable single-call wrappers.
func runSingle[R any](ctx context.Context, e *engine, scope *observe.Scope, fn Computation[R], bound Bound, digest []byte) (R, error) {
	var zero R

	var cached R
	found, err := e.lookup(ctx, scope, digest, &cached)
	if err != nil {
		return zero, err
	}
	if found {
		return cached, nil
	}

	start := time.Now()
	value, err := fn.invoke(ctx, bound)
	scope.Computed(ctx, 1, time.Since(start), err)
	if err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if err := e.put(ctx, scope, digest, &value); err != nil {
		return value, err
	}
	return value, nil
}
