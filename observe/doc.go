// Package observe provides observability primitives for memoized functions.
//
// It is a pure instrumentation library: spans named memo.call.<tag>,
// OpenTelemetry counters for lookups, computations, stores and errors, and
// a JSON structured logger. Wrappers in package memo accept an
// *Instrumentation; without one nothing is recorded.
package observe
