package memo

import "context"

// Result is the outcome delivered by a suspend-capable computation or
// wrapper call.
type Result[R any] struct {
	Value R
	Err   error
}

// Convention is the calling convention of a computation.
type Convention int

const (
	// Blocking computations return their result directly.
	Blocking Convention = iota
	// Suspending computations return a channel that later delivers the
	// result.
	Suspending
)

func (c Convention) String() string {
	if c == Suspending {
		return "suspending"
	}
	return "blocking"
}

// Computation is a function that can be memoized: Func for blocking code,
// AsyncFunc for code that delivers its result on a channel.
type Computation[R any] interface {
	Convention() Convention
	invoke(ctx context.Context, in Bound) (R, error)
	isNil() bool
}

// Func is a blocking computation. It receives the call bound to the
// wrapper's signature.
type Func[R any] func(ctx context.Context, in Bound) (R, error)

// Convention reports Blocking.
func (f Func[R]) Convention() Convention { return Blocking }

func (f Func[R]) invoke(ctx context.Context, in Bound) (R, error) { return f(ctx, in) }

func (f Func[R]) isNil() bool { return f == nil }

// AsyncFunc is a suspend-capable computation. The returned channel must
// deliver exactly one Result.
type AsyncFunc[R any] func(ctx context.Context, in Bound) <-chan Result[R]

// Convention reports Suspending.
func (f AsyncFunc[R]) Convention() Convention { return Suspending }

func (f AsyncFunc[R]) invoke(ctx context.Context, in Bound) (R, error) {
	ch := f(ctx, in)
	if ch == nil {
		var zero R
		return zero, ErrNoResult
	}
	return await(ctx, ch)
}

func (f AsyncFunc[R]) isNil() bool { return f == nil }

func checkComputation[R any](fn Computation[R], allowSuspending bool) error {
	if fn == nil || fn.isNil() {
		return ErrNilComputation
	}
	if !allowSuspending && fn.Convention() == Suspending {
		return ErrWrongCallingConvention
	}
	return nil
}

// await waits for the single result on ch or for ctx to end.
func await[R any](ctx context.Context, ch <-chan Result[R]) (R, error) {
	var zero R
	select {
	case r, ok := <-ch:
		if !ok {
			return zero, ErrNoResult
		}
		return r.Value, r.Err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func deliver[R any](v R, err error) <-chan Result[R] {
	ch := make(chan Result[R], 1)
	ch <- Result[R]{Value: v, Err: err}
	close(ch)
	return ch
}
