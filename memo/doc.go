// Package memo memoizes functions to persistent storage.
//
// A wrapper pairs a computation with a tag, a Signature and a backend.
// Each call is bound to the signature, hashed into a digest, and looked up
// under (tag, digest). On a miss the computation runs and its result is
// serialized and stored; errors are never stored.
//
// Four wrapper kinds exist:
//
//	New / Cached            blocking single call
//	NewAsync / AsyncCached  channel-returning single call
//	NewBatch / Batch        blocking batch call
//	NewAsyncBatch / AsyncBatch
//
// Batch wrappers look up every item separately and invoke the computation
// once with only the items that missed, so a call with inputs already seen
// does no work for those inputs.
//
// Tags are claimed in a Registry when a wrapper is constructed. Two
// wrappers may only share a tag with WithForceTagNonunique.
package memo
