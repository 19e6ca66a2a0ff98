package memo

import (
	"errors"
	"fmt"
)

// Sentinel errors for memoized calls. Typed errors below match their
// sentinel through errors.Is.
var (
	ErrDuplicateTag           = errors.New("memo: tag already registered")
	ErrWrongCallingConvention = errors.New("memo: async computation passed to a synchronous wrapper")
	ErrUnhashable             = errors.New("memo: argument cannot be hashed")
	ErrBind                   = errors.New("memo: arguments do not match signature")
	ErrBatchLengthMismatch    = errors.New("memo: batch arguments have different lengths")
	ErrBatchArgument          = errors.New("memo: batch argument is not a sequence")
	ErrBatchResultCount       = errors.New("memo: batch function returned wrong number of results")
	ErrAmbiguousParameter     = errors.New("memo: parameter classified as both batch and scalar")
	ErrNoBatchParameters      = errors.New("memo: batch wrapper has no batch parameters")
	ErrUnfilledSlot           = errors.New("memo: batch result slot left unfilled")
	ErrNilComputation         = errors.New("memo: computation is nil")
	ErrNoResult               = errors.New("memo: async computation completed without a result")
	ErrArgType                = errors.New("memo: argument has unexpected type")
)

// DuplicateTagError reports a tag that was already claimed in a registry.
type DuplicateTagError struct {
	Tag string
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("memo: tag %q already registered for another function; use a unique tag or force the tag to be non-unique", e.Tag)
}

func (e *DuplicateTagError) Is(target error) bool { return target == ErrDuplicateTag }

// UnhashableArgumentError reports a value the hasher cannot canonicalize.
type UnhashableArgumentError struct {
	Parameter string
	Type      string
	Reason    string
}

func (e *UnhashableArgumentError) Error() string {
	msg := fmt.Sprintf("memo: cannot hash argument %s of type %s", e.Parameter, e.Type)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnhashableArgumentError) Is(target error) bool { return target == ErrUnhashable }

// BindError reports arguments that cannot be bound to a signature.
type BindError struct {
	Parameter string
	Reason    string
}

func (e *BindError) Error() string {
	if e.Parameter == "" {
		return "memo: bind: " + e.Reason
	}
	return fmt.Sprintf("memo: bind %s: %s", e.Parameter, e.Reason)
}

func (e *BindError) Is(target error) bool { return target == ErrBind }

// BatchLengthMismatchError reports batch arguments of unequal length.
// Params and Lengths are in declaration order.
type BatchLengthMismatchError struct {
	Params  []string
	Lengths []int
}

func (e *BatchLengthMismatchError) Error() string {
	return fmt.Sprintf("memo: all batch arguments must have the same length, found %v for %v", e.Lengths, e.Params)
}

func (e *BatchLengthMismatchError) Is(target error) bool { return target == ErrBatchLengthMismatch }

// BatchArgumentError reports a batch argument that is not a slice or array.
type BatchArgumentError struct {
	Parameter string
	Type      string
}

func (e *BatchArgumentError) Error() string {
	return fmt.Sprintf("memo: batch argument %s of type %s is not a slice or array", e.Parameter, e.Type)
}

func (e *BatchArgumentError) Is(target error) bool { return target == ErrBatchArgument }

// BatchResultCountError reports a batch function that broke its contract by
// returning a result count different from the number of items it was given.
type BatchResultCountError struct {
	Want int
	Got  int
}

func (e *BatchResultCountError) Error() string {
	return fmt.Sprintf("memo: expected %d results from batch function, got %d", e.Want, e.Got)
}

func (e *BatchResultCountError) Is(target error) bool { return target == ErrBatchResultCount }

// AmbiguousParameterError reports a parameter declared scalar but also
// listed as a batch argument.
type AmbiguousParameterError struct {
	Parameter string
}

func (e *AmbiguousParameterError) Error() string {
	return fmt.Sprintf("memo: parameter %s is declared scalar but listed as a batch argument", e.Parameter)
}

func (e *AmbiguousParameterError) Is(target error) bool { return target == ErrAmbiguousParameter }
