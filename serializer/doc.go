// Package serializer provides the codecs that turn memoized results into
// stored bytes.
//
// Gob is the general-purpose default. JSON and YAML trade type fidelity for
// readable entries, and Compressed wraps any of them in a zstd frame.
package serializer
