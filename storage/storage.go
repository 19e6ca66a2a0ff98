package storage

import (
	"context"
	"errors"
	"strings"
)

// MaxTagLength is the maximum allowed length for a tag.
const MaxTagLength = 255

// Sentinel errors for storage operations.
var (
	ErrInvalidTag         = errors.New("storage: tag is invalid")
	ErrTagTooLong         = errors.New("storage: tag exceeds max length")
	ErrUnsupportedBackend = errors.New("storage: backend implements neither Storage nor AsyncStorage")
	ErrNoResult           = errors.New("storage: async operation completed without a result")
	ErrClosed             = errors.New("storage: backend is closed")
	ErrMissingEnv         = errors.New("storage: missing required environment variables")
)

// Storage is the blocking key/value contract used by memoized functions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Atomicity: Set replaces a single (tag, digest) entry atomically.
// - Errors: Get returns (nil, false, nil) on a miss; errors are reserved for
// backend failures.
type Storage interface {
	// Get returns the value stored under (tag, digest).
	Get(ctx context.Context, tag string, digest []byte) ([]byte, bool, error)

	// Set stores value under (tag, digest), replacing any previous value.
	Set(ctx context.Context, tag string, digest, value []byte) error

	// DeleteAllWithTag removes every entry stored under tag. Idempotent.
	DeleteAllWithTag(ctx context.Context, tag string) error
}

// GetResult is the outcome of an asynchronous Get.
type GetResult struct {
	Value []byte
	Found bool
	Err   error
}

// AsyncStorage is the suspend-capable variant of Storage. Each method starts
// the operation and returns a channel that receives exactly one value.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Channels: returned channels must be buffered so the operation never
// blocks on an abandoned receiver.
type AsyncStorage interface {
	GetAsync(ctx context.Context, tag string, digest []byte) <-chan GetResult
	SetAsync(ctx context.Context, tag string, digest, value []byte) <-chan error
	DeleteAllWithTagAsync(ctx context.Context, tag string) <-chan error
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateTag checks if a tag is usable as a namespace.
func ValidateTag(tag string) error {
	if tag == "" || strings.TrimSpace(tag) == "" {
		return ErrInvalidTag
	}
	if len(tag) > MaxTagLength {
		return ErrTagTooLong
	}
	if strings.ContainsAny(tag, "\n\r\x00") {
		return ErrInvalidTag
	}
	return nil
}
