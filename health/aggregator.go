package health

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a full round of checks.
const DefaultTimeout = 10 * time.Second

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds one Check or CheckAll call.
	// Default: DefaultTimeout
	Timeout time.Duration

	// Concurrency limits parallel checks. 1 checks in registration order;
	// zero leaves them unbounded.
	Concurrency int
}

// Aggregator runs a named set of checkers, usually one per storage backend
// in use, and reduces them to one status.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator returns an empty Aggregator. Only the first config is used.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	a := &Aggregator{checkers: map[string]Checker{}}
	if len(config) > 0 {
		a.config = config[0]
	}
	if a.config.Timeout <= 0 {
		a.config.Timeout = DefaultTimeout
	}
	return a
}

// Register installs checker under name. Re-registering a name replaces the
// checker but keeps its original position.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.checkers[name]; !ok {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.checkers[name]; !ok {
		return
	}
	delete(a.checkers, name)
	a.order = slices.DeleteFunc(a.order, func(n string) bool { return n == name })
}

// CheckerNames lists registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.order)
}

// Check runs the checker registered as name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// CheckAll runs every registered checker, keyed by name in the result.
// A checker still running when the timeout fires reports ErrCheckTimeout.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	names := slices.Clone(a.order)
	snapshot := maps.Clone(a.checkers)
	a.mu.RUnlock()

	results := make([]Result, len(names))
	if len(names) > 0 {
		ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()

		var g errgroup.Group
		if a.config.Concurrency > 0 {
			g.SetLimit(a.config.Concurrency)
		}
		for i, name := range names {
			g.Go(func() error {
				results[i] = runCheck(ctx, snapshot[name])
				return nil
			})
		}
		_ = g.Wait()
	}

	out := make(map[string]Result, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}

// OverallStatus is the worst status in results, or StatusHealthy when
// results is empty.
func OverallStatus(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		worst = max(worst, r.Status)
	}
	return worst
}

// Report summarizes one CheckAll round.
type Report struct {
	Status  Status
	Results map[string]Result
}

// Err is ErrNoCheckers for an empty report, ErrCheckFailed for an
// unhealthy one, and nil otherwise.
func (r Report) Err() error {
	if len(r.Results) == 0 {
		return ErrNoCheckers
	}
	if r.Status == StatusUnhealthy {
		return ErrCheckFailed
	}
	return nil
}

// Evaluate runs CheckAll and reduces it to a Report.
func (a *Aggregator) Evaluate(ctx context.Context) Report {
	results := a.CheckAll(ctx)
	return Report{Status: OverallStatus(results), Results: results}
}

// runCheck stamps the result with start time and duration. A checker that
// ignores ctx is abandoned once ctx ends.
func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() { done <- checker.Check(ctx) }()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Unhealthy("check timed out", ErrCheckTimeout)
	}
	if r.Duration == 0 {
		r.Duration = time.Since(start)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	return r
}

var aggregateMessages = map[Status]string{
	StatusHealthy:   "all checks passed",
	StatusDegraded:  "some checks degraded",
	StatusUnhealthy: "some checks failed",
}

// Checker wraps the whole aggregator as one Checker named "aggregate",
// with per-component summaries in Details.
func (a *Aggregator) Checker() Checker {
	return NewCheckerFunc("aggregate", func(ctx context.Context) Result {
		report := a.Evaluate(ctx)
		details := make(map[string]any, len(report.Results))
		for name, r := range report.Results {
			details[name] = map[string]any{
				"status":   r.Status.String(),
				"message":  r.Message,
				"duration": r.Duration.String(),
			}
		}
		msg, ok := aggregateMessages[report.Status]
		if !ok {
			msg = aggregateMessages[StatusUnhealthy]
		}
		return Result{
			Status:    report.Status,
			Message:   msg,
			Details:   details,
			Error:     report.Err(),
			Timestamp: time.Now(),
		}
	})
}
