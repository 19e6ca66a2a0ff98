package memo

import (
	"context"
	"fmt"

	"github.com/zygi/miniperscache/observe"
	"github.com/zygi/miniperscache/resilience"
	"github.com/zygi/miniperscache/serializer"
	"github.com/zygi/miniperscache/storage"
)

// engine holds what every wrapper kind shares: the key space, the codec,
// the backend and the write policy.
type engine struct {
	tag    string
	sig    Signature
	hasher ArgHasher
	codec  serializer.Serializer
	store  *storage.Dispatcher
	policy *resilience.Executor
	inst   *observe.Instrumentation
	meta   observe.FuncMeta
}

func newEngine(tag string, sig Signature, meta observe.FuncMeta, cfg config) (*engine, error) {
	if err := storage.ValidateTag(tag); err != nil {
		return nil, err
	}

	hasher := cfg.hasher
	if hasher == nil {
		h, err := cfg.factory.NewHasher(sig)
		if err != nil {
			return nil, err
		}
		hasher = h
	}

	backend := cfg.backend
	if backend == nil {
		db, err := storage.Default()
		if err != nil {
			return nil, fmt.Errorf("memo: open default storage: %w", err)
		}
		backend = db
	}
	store, err := storage.Dispatch(backend)
	if err != nil {
		return nil, err
	}

	var policy *resilience.Executor
	if cfg.retry != nil || cfg.storeTimeout > 0 {
		policy = resilience.NewExecutor(
			resilience.WithRetry(cfg.retry),
			resilience.WithTimeout(cfg.storeTimeout),
		)
	}

	meta.Tag = tag
	return &engine{
		tag:    tag,
		sig:    sig,
		hasher: hasher,
		codec:  cfg.serializer,
		store:  store,
		policy: policy,
		inst:   cfg.inst,
		meta:   meta,
	}, nil
}

// register claims the tag. Constructors call it last so a failed
// construction leaves the registry untouched.
func (e *engine) register(cfg config) error {
	return cfg.registry.Register(e.tag, cfg.forceNonunique)
}

// digest hashes a bound call, reusing the binding when the hasher allows.
func (e *engine) digest(args Args, bound Bound) ([]byte, error) {
	if bh, ok := e.hasher.(boundHasher); ok {
		return bh.hashBound(bound)
	}
	return e.hasher.Hash(args)
}

// prepare binds and hashes one call. It never touches storage.
func (e *engine) prepare(args Args) (Bound, []byte, error) {
	bound, err := e.sig.Bind(args)
	if err != nil {
		return Bound{}, nil, err
	}
	digest, err := e.digest(args, bound)
	if err != nil {
		return Bound{}, nil, err
	}
	return bound, digest, nil
}

// lookup fetches and decodes the entry for digest into out.
func (e *engine) lookup(ctx context.Context, scope *observe.Scope, digest []byte, out any) (bool, error) {
	data, found, err := e.store.Get(ctx, e.tag, digest)
	if err != nil {
		scope.Failed(ctx, observe.StageLookup, err)
		return false, err
	}
	if !found {
		scope.Miss(ctx, digest)
		return false, nil
	}
	if err := e.codec.Deserialize(data, out); err != nil {
		scope.Failed(ctx, observe.StageDeserialize, err)
		return false, err
	}
	scope.Hit(ctx, digest)
	return true, nil
}

// put encodes the result value points at and writes it under digest
// through the write policy. Passing a pointer gives the codec the same shape
// on both sides, which matters when the result type is an interface.
func (e *engine) put(ctx context.Context, scope *observe.Scope, digest []byte, value any) error {
	data, err := e.codec.Serialize(value)
	if err != nil {
		scope.Failed(ctx, observe.StageSerialize, err)
		return err
	}
	err = e.policy.Execute(ctx, func(ctx context.Context) error {
		return e.store.Set(ctx, e.tag, digest, data)
	})
	scope.Stored(ctx, digest, err)
	return err
}

func (e *engine) clear(ctx context.Context) error {
	return e.store.DeleteAllWithTag(ctx, e.tag)
}

// Info describes a memoized wrapper.
type Info struct {
	Tag         string
	Kind        string
	Async       bool
	StorageMode storage.Mode
}

func (e *engine) info() Info {
	return Info{
		Tag:         e.tag,
		Kind:        e.meta.Kind,
		Async:       e.meta.Async,
		StorageMode: e.store.Mode(),
	}
}
