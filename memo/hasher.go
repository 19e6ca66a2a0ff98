package memo

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// digestVersion prefixes every structural digest so the encoding can evolve
// without colliding with entries written by an older format.
const digestVersion = "mpc1"

// ArgHasher turns the arguments of one call into a digest.
//
// Contract:
// - Determinism: equal inputs produce equal digests across runs, processes
// and architectures.
// - Concurrency: implementations must be safe for concurrent use.
type ArgHasher interface {
	Hash(args Args) ([]byte, error)
}

// ArgHasherFunc adapts a function to ArgHasher.
type ArgHasherFunc func(args Args) ([]byte, error)

// Hash calls f(args).
func (f ArgHasherFunc) Hash(args Args) ([]byte, error) {
	return f(args)
}

// HasherFactory builds a hasher for a specific signature. It is consulted
// once, when a wrapper is constructed.
type HasherFactory interface {
	NewHasher(sig Signature) (ArgHasher, error)
}

// HasherFactoryFunc adapts a function to HasherFactory.
type HasherFactoryFunc func(sig Signature) (ArgHasher, error)

// NewHasher calls f(sig).
func (f HasherFactoryFunc) NewHasher(sig Signature) (ArgHasher, error) {
	return f(sig)
}

// DefaultHasher is the canonical structural hasher. It binds each call to
// the signature so positional and keyword calls of the same values share a
// digest.
type DefaultHasher struct {
	// SkipArgs lists parameter names excluded from the digest.
	SkipArgs []string
}

// NewHasher validates SkipArgs against sig and returns the per-call hasher.
func (h DefaultHasher) NewHasher(sig Signature) (ArgHasher, error) {
	skip := make(map[string]bool, len(h.SkipArgs))
	for _, name := range h.SkipArgs {
		if _, ok := sig.Lookup(name); !ok {
			return nil, &BindError{Parameter: name, Reason: "skip argument is not declared"}
		}
		skip[name] = true
	}
	return &structuralHasher{sig: sig, skip: skip}, nil
}

type structuralHasher struct {
	sig  Signature
	skip map[string]bool
}

// Hash binds args, drops skipped names and digests the rest in name order.
func (h *structuralHasher) Hash(args Args) ([]byte, error) {
	bound, err := h.sig.Bind(args)
	if err != nil {
		return nil, err
	}
	return h.hashBound(bound)
}

// boundHasher is implemented by hashers that can digest an already bound
// call without binding it again.
type boundHasher interface {
	hashBound(b Bound) ([]byte, error)
}

func (h *structuralHasher) hashBound(bound Bound) ([]byte, error) {
	var err error
	buf := []byte(digestVersion)
	for _, name := range bound.names {
		if h.skip[name] {
			continue
		}
		buf = appendString(buf, name)
		if buf, err = AppendCanonical(buf, bound.values[name]); err != nil {
			return nil, withParameter(err, name)
		}
	}
	sum := sha256.Sum256(buf)
	return sum[:], nil
}

// RawHasher hashes positional values followed by keyword values sorted by
// name, without consulting the signature. It is cheaper than DefaultHasher
// but f(1, 2) and f(a=1, b=2) produce different digests, so callers must
// use a consistent call shape.
type RawHasher struct{}

// Hash digests args with xxhash64.
func (RawHasher) Hash(args Args) ([]byte, error) {
	buf := binary.AppendUvarint(nil, uint64(len(args.Positional)))
	var err error
	for i, v := range args.Positional {
		if buf, err = AppendCanonical(buf, v); err != nil {
			return nil, withParameter(err, fmt.Sprintf("#%d", i))
		}
	}
	names := slices.Sorted(maps.Keys(args.Keyword))
	buf = binary.AppendUvarint(buf, uint64(len(names)))
	for _, name := range names {
		buf = appendString(buf, name)
		if buf, err = AppendCanonical(buf, args.Keyword[name]); err != nil {
			return nil, withParameter(err, name)
		}
	}
	return binary.BigEndian.AppendUint64(nil, xxhash.Sum64(buf)), nil
}

func withParameter(err error, name string) error {
	var u *UnhashableArgumentError
	if errors.As(err, &u) {
		u.Parameter = name
		return u
	}
	return err
}

var (
	_ HasherFactory = DefaultHasher{}
	_ ArgHasher     = (*structuralHasher)(nil)
	_ boundHasher   = (*structuralHasher)(nil)
	_ ArgHasher     = RawHasher{}
	_ ArgHasher     = ArgHasherFunc(nil)
	_ HasherFactory = HasherFactoryFunc(nil)
)
