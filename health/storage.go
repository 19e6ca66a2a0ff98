package health

import (
	"context"
	"fmt"
	"time"

	"github.com/zygi/miniperscache/storage"
)

// DefaultSlowThreshold is the ping latency above which a backend is
// reported degraded.
const DefaultSlowThreshold = 250 * time.Millisecond

// StorageCheckerConfig configures a StorageChecker.
type StorageCheckerConfig struct {
	// Name identifies the checker. Default: "storage"
	Name string

	// SlowThreshold marks the backend degraded when a ping takes longer.
	// Default: DefaultSlowThreshold
	SlowThreshold time.Duration
}

// StorageChecker pings a memoization backend.
type StorageChecker struct {
	config StorageCheckerConfig
	pinger storage.Pinger
	kind   string
}

// NewStorageChecker creates a checker for backend, which must implement
// storage.Pinger. A *storage.Dispatcher is checked through its backend.
func NewStorageChecker(backend any, config StorageCheckerConfig) (*StorageChecker, error) {
	if config.Name == "" {
		config.Name = "storage"
	}
	if config.SlowThreshold <= 0 {
		config.SlowThreshold = DefaultSlowThreshold
	}

	target := backend
	if d, ok := backend.(*storage.Dispatcher); ok {
		target = d.Backend()
	}
	pinger, ok := target.(storage.Pinger)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotPingable, target)
	}

	return &StorageChecker{
		config: config,
		pinger: pinger,
		kind:   fmt.Sprintf("%T", target),
	}, nil
}

// Name returns the configured checker name.
func (c *StorageChecker) Name() string {
	return c.config.Name
}

// Check pings the backend once.
func (c *StorageChecker) Check(ctx context.Context) Result {
	start := time.Now()
	err := c.pinger.Ping(ctx)
	elapsed := time.Since(start)

	details := map[string]any{
		"backend":    c.kind,
		"latency_ms": float64(elapsed.Microseconds()) / 1000,
	}

	var result Result
	switch {
	case err != nil:
		result = Unhealthy("storage ping failed", err)
	case elapsed > c.config.SlowThreshold:
		result = Degraded(fmt.Sprintf("storage ping took %v", elapsed.Round(time.Millisecond)))
	default:
		result = Healthy("storage reachable")
	}
	return result.WithDetails(details).WithDuration(elapsed)
}

var _ Checker = (*StorageChecker)(nil)
