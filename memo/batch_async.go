package memo

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zygi/miniperscache/observe"
)

// fanOut runs fn for every index on at most limit goroutines. The first
// error cancels the remaining work.
func fanOut(limit int) runner {
	return func(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i := 0; i < n; i++ {
			g.Go(func() error {
				return fn(gctx, i)
			})
		}
		return g.Wait()
	}
}

// AsyncBatch is the suspend-capable memoized batch function. Lookups and
// writes of one call fan out over WithConcurrency goroutines; the wrapped
// function is still invoked at most once per call.
type AsyncBatch[R any] struct {
	e      *engine
	fn     Computation[[]R]
	params batchParams
	each   runner
}

// NewAsyncBatch wraps a batch computation of either calling convention.
func NewAsyncBatch[R any](tag string, fn Computation[[]R], sig Signature, opts ...Option) (*AsyncBatch[R], error) {
	if err := checkComputation(fn, true); err != nil {
		return nil, err
	}
	cfg := newConfig(opts)
	params, err := classifyBatch(sig, cfg.batchArgs)
	if err != nil {
		return nil, err
	}
	e, err := newEngine(tag, sig, observe.FuncMeta{Kind: observe.KindBatch, Async: true}, cfg)
	if err != nil {
		return nil, err
	}
	if err := e.register(cfg); err != nil {
		return nil, err
	}
	return &AsyncBatch[R]{e: e, fn: fn, params: params, each: fanOut(cfg.concurrency)}, nil
}

// Call starts the batch call and returns a channel that delivers exactly
// one Result. Binding, validation and hashing happen before Call returns.
func (b *AsyncBatch[R]) Call(ctx context.Context, args Args) <-chan Result[[]R] {
	ctx, scope := b.e.inst.Start(ctx, b.e.meta)

	p, err := b.e.plan(b.params, args)
	if err != nil {
		scope.Failed(ctx, observe.StageHash, err)
		scope.End(ctx, err)
		return deliver[[]R](nil, err)
	}

	ch := make(chan Result[[]R], 1)
	go func() {
		defer close(ch)
		v, err := runBatch(ctx, b.e, scope, b.fn, b.params, p, b.each)
		scope.End(ctx, err)
		ch <- Result[[]R]{Value: v, Err: err}
	}()
	return ch
}

// Await calls and waits for the results or for ctx to end.
func (b *AsyncBatch[R]) Await(ctx context.Context, args Args) ([]R, error) {
	return await(ctx, b.Call(ctx, args))
}

// BatchParams returns the batch parameter names in declaration order.
func (b *AsyncBatch[R]) BatchParams() []string {
	return append([]string(nil), b.params.batch...)
}

// Clear deletes every stored result under the wrapper's tag.
func (b *AsyncBatch[R]) Clear(ctx context.Context) error {
	return b.e.clear(ctx)
}

// Tag returns the storage namespace of the wrapper.
func (b *AsyncBatch[R]) Tag() string {
	return b.e.tag
}

// Info describes the wrapper.
func (b *AsyncBatch[R]) Info() Info {
	return b.e.info()
}
