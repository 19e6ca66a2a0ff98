package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend unavailable")

func TestNewRetry_Defaults(t *testing.T) {
	cfg := NewRetry(RetryConfig{}).Config()

	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != 50*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 50ms", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 2*time.Second {
		t.Errorf("MaxDelay = %v, want 2s", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", cfg.Multiplier)
	}
	if cfg.RetryIf == nil {
		t.Error("RetryIf should default to Retryable")
	}
}

func TestRetryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RetryConfig
		wantErr bool
	}{
		{"zero value", RetryConfig{}, false},
		{"delay above cap", RetryConfig{InitialDelay: time.Second, MaxDelay: time.Millisecond}, true},
		{"negative multiplier", RetryConfig{Multiplier: -1}, true},
		{"unknown strategy", RetryConfig{Strategy: BackoffStrategy(9)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_SuccessOnRetry(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errBackend
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_ExhaustedAttemptsWrapsLastError(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return errBackend
	})

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("Execute() error = %v, want ErrMaxRetriesExceeded", err)
	}
	if !errors.Is(err, errBackend) {
		t.Errorf("Execute() error = %v, want wrapped backend error", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_SingleAttemptReturnsErrorVerbatim(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 1})

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		return errBackend
	})

	if err != errBackend {
		t.Errorf("Execute() error = %v, want %v", err, errBackend)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 10, InitialDelay: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	err := r.Execute(ctx, func(ctx context.Context) error {
		cancel()
		return errBackend
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestRetry_ContextErrorsNotRetried(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return context.DeadlineExceeded
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_RetryIf(t *testing.T) {
	nonRetryable := errors.New("read-only filesystem")

	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		RetryIf: func(err error) bool {
			return errors.Is(err, errBackend)
		},
	})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return nonRetryable
	})

	if err != nonRetryable {
		t.Errorf("Execute() error = %v, want %v", err, nonRetryable)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_OnRetry(t *testing.T) {
	var attempts []int
	var delays []time.Duration

	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Strategy:     BackoffLinear,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
			delays = append(delays, delay)
		},
	})

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errBackend
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", attempts)
	}
	if delays[1] != 2*time.Millisecond {
		t.Errorf("second delay = %v, want 2ms", delays[1])
	}
}

func TestRetry_BackoffStrategies(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RetryConfig
		attempt int
		want    time.Duration
	}{
		{"exponential", RetryConfig{InitialDelay: 10 * time.Millisecond, Strategy: BackoffExponential}, 3, 40 * time.Millisecond},
		{"linear", RetryConfig{InitialDelay: 10 * time.Millisecond, Strategy: BackoffLinear}, 3, 30 * time.Millisecond},
		{"constant", RetryConfig{InitialDelay: 10 * time.Millisecond, Strategy: BackoffConstant}, 3, 10 * time.Millisecond},
		{"max delay cap", RetryConfig{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 10}, 5, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRetry(tt.cfg).delay(tt.attempt); got != tt.want {
				t.Errorf("delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetry_JitterBounded(t *testing.T) {
	r := NewRetry(RetryConfig{InitialDelay: 100 * time.Millisecond, Strategy: BackoffConstant, Jitter: true})

	for i := 0; i < 100; i++ {
		d := r.delay(1)
		if d < 100*time.Millisecond || d >= 125*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 125ms)", d)
		}
	}
}

func TestBackoffStrategy_String(t *testing.T) {
	if BackoffLinear.String() != "linear" {
		t.Errorf("BackoffLinear.String() = %q", BackoffLinear.String())
	}
	if BackoffStrategy(7).String() != "BackoffStrategy(7)" {
		t.Errorf("unknown strategy String() = %q", BackoffStrategy(7).String())
	}
}
