package memo

import (
	"context"
	"reflect"
	"time"

	"github.com/zygi/miniperscache/observe"
)

// batchParams is the split of a signature into per-item and shared
// parameters, each in declaration order.
type batchParams struct {
	batch  []string
	scalar []string
}

// classifyBatch merges Param.Kind with the names listed by WithBatchArgs.
func classifyBatch(sig Signature, listed []string) (batchParams, error) {
	isBatch := make(map[string]bool, len(listed))
	for _, name := range listed {
		p, ok := sig.Lookup(name)
		if !ok {
			return batchParams{}, &BindError{Parameter: name, Reason: "batch argument is not declared"}
		}
		if p.Kind == KindScalar {
			return batchParams{}, &AmbiguousParameterError{Parameter: name}
		}
		isBatch[name] = true
	}

	var bp batchParams
	for _, p := range sig.params {
		if p.Kind == KindBatch || isBatch[p.Name] {
			bp.batch = append(bp.batch, p.Name)
		} else {
			bp.scalar = append(bp.scalar, p.Name)
		}
	}
	if len(bp.batch) == 0 {
		return batchParams{}, ErrNoBatchParameters
	}
	return bp, nil
}

// batchPlan is a validated batch call: its length, the columns of the batch
// parameters and one digest per item.
type batchPlan struct {
	n       int
	bound   Bound
	columns map[string]reflect.Value
	digests [][]byte
}

// plan binds args, validates the batch columns and hashes every item. It
// never touches storage.
func (e *engine) plan(params batchParams, args Args) (*batchPlan, error) {
	bound, err := e.sig.Bind(args)
	if err != nil {
		return nil, err
	}

	columns := make(map[string]reflect.Value, len(params.batch))
	lengths := make([]int, len(params.batch))
	for i, name := range params.batch {
		v := reflect.ValueOf(bound.values[name])
		if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
			typ := "nil"
			if v.IsValid() {
				typ = v.Type().String()
			}
			return nil, &BatchArgumentError{Parameter: name, Type: typ}
		}
		columns[name] = v
		lengths[i] = v.Len()
	}
	for _, l := range lengths[1:] {
		if l != lengths[0] {
			return nil, &BatchLengthMismatchError{Params: params.batch, Lengths: lengths}
		}
	}

	p := &batchPlan{n: lengths[0], bound: bound, columns: columns, digests: make([][]byte, lengths[0])}
	for i := 0; i < p.n; i++ {
		item := make(map[string]any, len(bound.values))
		for _, name := range params.scalar {
			item[name] = bound.values[name]
		}
		for _, name := range params.batch {
			item[name] = columns[name].Index(i).Interface()
		}
		itemBound := newBound(item)
		if p.digests[i], err = e.digest(itemBound.Args(), itemBound); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// reduced returns the call made of the missed items only. Each batch column
// keeps the caller's element type; arrays become slices.
func (p *batchPlan) reduced(params batchParams, misses []int) Bound {
	values := make(map[string]any, len(p.bound.values))
	for _, name := range params.scalar {
		values[name] = p.bound.values[name]
	}
	for _, name := range params.batch {
		col := p.columns[name]
		out := reflect.MakeSlice(reflect.SliceOf(col.Type().Elem()), 0, len(misses))
		for _, i := range misses {
			out = reflect.Append(out, col.Index(i))
		}
		values[name] = out.Interface()
	}
	return newBound(values)
}

// runner applies fn to indices 0..n-1, stopping at the first error.
type runner func(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error

func sequential(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	for i := 0; i < n; i++ {
		if err := fn(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// runBatch reconciles one planned batch call: lookups, a single invocation
// for the misses, then writes. Results are in input order. A failed write
// returns the full results together with the first write error.
func runBatch[R any](ctx context.Context, e *engine, scope *observe.Scope, fn Computation[[]R], params batchParams, p *batchPlan, each runner) ([]R, error) {
	results := make([]R, p.n)
	if p.n == 0 {
		return results, nil
	}

	filled := make([]bool, p.n)
	err := each(ctx, p.n, func(ctx context.Context, i int) error {
		found, err := e.lookup(ctx, scope, p.digests[i], &results[i])
		filled[i] = found
		return err
	})
	if err != nil {
		return nil, err
	}

	var misses []int
	for i, ok := range filled {
		if !ok {
			misses = append(misses, i)
		}
	}

	if len(misses) > 0 {
		start := time.Now()
		fresh, err := fn.invoke(ctx, p.reduced(params, misses))
		scope.Computed(ctx, len(misses), time.Since(start), err)
		if err != nil {
			return nil, err
		}
		if len(fresh) != len(misses) {
			err := &BatchResultCountError{Want: len(misses), Got: len(fresh)}
			scope.Failed(ctx, observe.StageCompute, err)
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for j, i := range misses {
			results[i] = fresh[j]
			filled[i] = true
		}

		storeErrs := make([]error, len(misses))
		_ = each(ctx, len(misses), func(ctx context.Context, j int) error {
			storeErrs[j] = e.put(ctx, scope, p.digests[misses[j]], &fresh[j])
			return nil
		})
		for _, err := range storeErrs {
			if err != nil {
				return results, err
			}
		}
	}

	for _, ok := range filled {
		if !ok {
			return nil, ErrUnfilledSlot
		}
	}
	return results, nil
}

// Batch is a blocking memoized batch function. A call with N items returns
// N results in input order; only the items not already stored are passed
// to the wrapped function, in one invocation.
type Batch[R any] struct {
	e      *engine
	fn     Computation[[]R]
	params batchParams
}

// NewBatch wraps a blocking batch computation. Batch parameters are those
// declared with Param.AsBatch plus those listed by WithBatchArgs.
func NewBatch[R any](tag string, fn Computation[[]R], sig Signature, opts ...Option) (*Batch[R], error) {
	if err := checkComputation(fn, false); err != nil {
		return nil, err
	}
	cfg := newConfig(opts)
	params, err := classifyBatch(sig, cfg.batchArgs)
	if err != nil {
		return nil, err
	}
	e, err := newEngine(tag, sig, observe.FuncMeta{Kind: observe.KindBatch}, cfg)
	if err != nil {
		return nil, err
	}
	if err := e.register(cfg); err != nil {
		return nil, err
	}
	return &Batch[R]{e: e, fn: fn, params: params}, nil
}

// Call reconciles the batch against storage and returns one result per
// item.
func (b *Batch[R]) Call(ctx context.Context, args Args) (results []R, err error) {
	ctx, scope := b.e.inst.Start(ctx, b.e.meta)
	defer func() { scope.End(ctx, err) }()

	p, err := b.e.plan(b.params, args)
	if err != nil {
		scope.Failed(ctx, observe.StageHash, err)
		return nil, err
	}
	return runBatch(ctx, b.e, scope, b.fn, b.params, p, sequential)
}

// BatchParams returns the batch parameter names in declaration order.
func (b *Batch[R]) BatchParams() []string {
	return append([]string(nil), b.params.batch...)
}

// Clear deletes every stored result under the wrapper's tag.
func (b *Batch[R]) Clear(ctx context.Context) error {
	return b.e.clear(ctx)
}

// Tag returns the storage namespace of the wrapper.
func (b *Batch[R]) Tag() string {
	return b.e.tag
}

// Info describes the wrapper.
func (b *Batch[R]) Info() Info {
	return b.e.info()
}
