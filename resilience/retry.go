package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy selects how the wait between store attempts grows.
type BackoffStrategy int

const (
	// BackoffExponential scales the wait by Multiplier per attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear waits InitialDelay times the attempt number.
	BackoffLinear
	// BackoffConstant always waits InitialDelay.
	BackoffConstant
)

func (s BackoffStrategy) String() string {
	switch s {
	case BackoffExponential:
		return "exponential"
	case BackoffLinear:
		return "linear"
	case BackoffConstant:
		return "constant"
	default:
		return fmt.Sprintf("BackoffStrategy(%d)", int(s))
	}
}

// RetryConfig configures Retry. Zero fields take the listed defaults.
type RetryConfig struct {
	// MaxAttempts counts the first try.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the wait after the first failure.
	// Default: 50ms
	InitialDelay time.Duration

	// MaxDelay caps any single wait.
	// Default: 2s
	MaxDelay time.Duration

	// Multiplier applies to BackoffExponential only.
	// Default: 2.0
	Multiplier float64

	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter stretches each wait by up to a quarter.
	Jitter bool

	// RetryIf decides whether a failed attempt is repeated.
	// Default: Retryable
	RetryIf func(err error) bool

	// OnRetry, when set, observes each failure that will be retried.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Validate rejects configurations that cannot be defaulted.
func (c RetryConfig) Validate() error {
	if c.MaxDelay > 0 && c.InitialDelay > c.MaxDelay {
		return fmt.Errorf("resilience: initial delay %v exceeds max delay %v", c.InitialDelay, c.MaxDelay)
	}
	if c.Multiplier < 0 {
		return fmt.Errorf("resilience: negative multiplier %v", c.Multiplier)
	}
	if c.Strategy < BackoffExponential || c.Strategy > BackoffConstant {
		return fmt.Errorf("resilience: unknown backoff strategy %v", c.Strategy)
	}
	return nil
}

// Retryable is the default RetryIf: storage errors are retried, context
// errors are not.
func Retryable(err error) bool {
	return err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// Retry repeats failed operations with backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry returns a Retry for config with defaults filled in.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 50 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 2 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = Retryable
	}

	return &Retry{config: config}
}

// Execute runs op until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. Exhaustion returns an error matching both
// ErrMaxRetriesExceeded and the last error from op.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	attempts := r.config.MaxAttempts
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		switch {
		case err == nil:
			return nil
		case !r.config.RetryIf(err):
			return err
		case attempt == attempts && attempts == 1:
			return err
		case attempt == attempts:
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempts, err)
		}

		wait := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Retry) delay(attempt int) time.Duration {
	c := r.config
	d := c.InitialDelay
	switch c.Strategy {
	case BackoffLinear:
		d *= time.Duration(attempt)
	case BackoffExponential:
		d = time.Duration(float64(d) * math.Pow(c.Multiplier, float64(attempt-1)))
	}
	d = min(d, c.MaxDelay)
	if c.Jitter && d >= 4 {
		// #nosec G404 -- timing variance, not security.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
