package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout is used when TimeoutConfig.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// TimeoutConfig configures Timeout.
type TimeoutConfig struct {
	// Timeout bounds one attempt of a store write.
	// Default: DefaultTimeout
	Timeout time.Duration
}

// Timeout gives every operation its own deadline.
type Timeout struct {
	config TimeoutConfig
}

func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Timeout{config: config}
}

// Execute runs op under a deadline of t's duration. ErrTimeout is returned
// when that deadline, not the parent's, ends the operation. An op that
// ignores its context is abandoned to finish in the background.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(opCtx) }()

	var err error
	select {
	case err = <-done:
	case <-opCtx.Done():
		err = opCtx.Err()
	}

	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ErrTimeout
	}
	return err
}

// Config returns the effective configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// ExecuteWithTimeout runs op once under a timeout of d.
func ExecuteWithTimeout(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	return NewTimeout(TimeoutConfig{Timeout: d}).Execute(ctx, op)
}
