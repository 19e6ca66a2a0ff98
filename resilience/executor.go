package resilience

import (
	"context"
	"time"
)

// Executor composes retry and per-attempt timeout into one policy.
// A nil *Executor runs operations directly.
type Executor struct {
	retry   *Retry
	timeout *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor builds an Executor from opts. With no options it runs
// operations unchanged.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRetry repeats failed operations using r.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithTimeout bounds each attempt by timeout. Non-positive values disable
// the bound.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		if timeout <= 0 {
			e.timeout = nil
			return
		}
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// WithTimeoutConfig installs a prebuilt Timeout.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) {
		e.timeout = t
	}
}

// Enabled reports whether the executor applies any policy.
func (e *Executor) Enabled() bool {
	return e != nil && (e.retry != nil || e.timeout != nil)
}

// Execute runs op under the configured policies. Each attempt gets its own
// timeout; retry repeats timed attempts.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	if e == nil {
		return op(ctx)
	}
	attempt := op
	if e.timeout != nil {
		attempt = func(ctx context.Context) error { return e.timeout.Execute(ctx, op) }
	}
	if e.retry == nil {
		return attempt(ctx)
	}
	return e.retry.Execute(ctx, attempt)
}
