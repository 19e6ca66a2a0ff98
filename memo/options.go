package memo

import (
	"time"

	"github.com/zygi/miniperscache/observe"
	"github.com/zygi/miniperscache/resilience"
	"github.com/zygi/miniperscache/serializer"
)

// Option configures a memoized wrapper.
type Option func(*config)

type config struct {
	hasher         ArgHasher
	factory        HasherFactory
	serializer     serializer.Serializer
	backend        any
	forceNonunique bool
	registry       *Registry
	batchArgs      []string
	retry          *resilience.Retry
	storeTimeout   time.Duration
	inst           *observe.Instrumentation
	concurrency    int
}

func newConfig(opts []Option) config {
	cfg := config{
		factory:     DefaultHasher{},
		registry:    DefaultRegistry,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.serializer == nil {
		cfg.serializer = serializer.Default()
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry
	}
	if cfg.concurrency < 1 {
		cfg.concurrency = 1
	}
	return cfg
}

// WithArgHasher hashes every call with h instead of the default structural
// hasher.
func WithArgHasher(h ArgHasher) Option {
	return func(c *config) {
		c.hasher = h
		c.factory = nil
	}
}

// WithHasherFactory builds the per-call hasher from the wrapper's signature.
func WithHasherFactory(f HasherFactory) Option {
	return func(c *config) {
		c.factory = f
		c.hasher = nil
	}
}

// WithSkipArgs excludes the named parameters from the digest.
func WithSkipArgs(names ...string) Option {
	return WithHasherFactory(DefaultHasher{SkipArgs: names})
}

// WithSerializer sets the codec for stored values. Default: gob.
func WithSerializer(s serializer.Serializer) Option {
	return func(c *config) {
		c.serializer = s
	}
}

// WithStorage sets the backend, a storage.Storage or storage.AsyncStorage.
// Default: the SQLite database under ./.miniperscache.
func WithStorage(backend any) Option {
	return func(c *config) {
		c.backend = backend
	}
}

// WithForceTagNonunique lets the wrapper share its tag with another one.
// The registry is neither checked nor updated.
func WithForceTagNonunique(force bool) Option {
	return func(c *config) {
		c.forceNonunique = force
	}
}

// WithRegistry sets the registry that enforces tag uniqueness.
func WithRegistry(r *Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithBatchArgs names the batch parameters of a batch wrapper, in addition
// to those declared with Param.AsBatch.
func WithBatchArgs(names ...string) Option {
	return func(c *config) {
		c.batchArgs = append(c.batchArgs, names...)
	}
}

// WithStoreRetry retries failed cache writes with r. Without it a failed
// write is reported once, alongside the computed value.
func WithStoreRetry(r *resilience.Retry) Option {
	return func(c *config) {
		c.retry = r
	}
}

// WithStoreTimeout bounds each cache write attempt.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *config) {
		c.storeTimeout = d
	}
}

// WithInstrumentation records spans, metrics and logs for every call.
func WithInstrumentation(inst *observe.Instrumentation) Option {
	return func(c *config) {
		c.inst = inst
	}
}

// WithConcurrency bounds the concurrent lookups and writes of an async
// batch call. Default: 1.
func WithConcurrency(n int) Option {
	return func(c *config) {
		c.concurrency = n
	}
}
