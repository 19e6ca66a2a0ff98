// Package health reports whether the storage behind memoized functions is
// reachable.
//
// StorageChecker pings any backend implementing storage.Pinger and reports
// it healthy, degraded when the ping is slow, or unhealthy on error.
// Aggregator combines several checkers:
//
//	agg := health.NewAggregator()
//	sqlite, _ := health.NewStorageChecker(db, health.StorageCheckerConfig{Name: "sqlite"})
//	agg.Register("sqlite", sqlite)
//
//	report := agg.Evaluate(ctx)
//	if err := report.Err(); err != nil {
//	    log.Printf("cache storage: %s", report.Status)
//	}
package health
