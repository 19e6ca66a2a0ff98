// Package resilience provides the retry and timeout policies applied to
// cache writes.
//
// Memoized wrappers never retry by default: a failed store returns the
// computed value together with the storage error. Passing a policy opts in
// to bounded retries with backoff and a per-attempt deadline:
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  4,
//	    InitialDelay: 20 * time.Millisecond,
//	    Jitter:       true,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRetry(retry),
//	    resilience.WithTimeout(2*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return backend.Set(ctx, tag, digest, value)
//	})
package resilience
