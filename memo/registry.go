package memo

import (
	"slices"
	"sync"

	"github.com/zygi/miniperscache/storage"
)

// Registry records which tags have been claimed so two functions cannot
// accidentally share a namespace.
type Registry struct {
	mu   sync.Mutex
	tags map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tags: make(map[string]struct{})}
}

// DefaultRegistry is the process-wide registry used by every wrapper unless
// WithRegistry supplies another.
var DefaultRegistry = NewRegistry()

// Register claims tag. A tag already claimed yields *DuplicateTagError
// unless allowDuplicate is set, in which case the registry is neither
// checked nor updated.
func (r *Registry) Register(tag string, allowDuplicate bool) error {
	if err := storage.ValidateTag(tag); err != nil {
		return err
	}
	if allowDuplicate {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tags[tag]; exists {
		return &DuplicateTagError{Tag: tag}
	}
	r.tags[tag] = struct{}{}
	return nil
}

// Registered reports whether tag has been claimed.
func (r *Registry) Registered(tag string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tags[tag]
	return ok
}

// Tags returns the claimed tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tags := make([]string, 0, len(r.tags))
	for tag := range r.tags {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Reset forgets every claimed tag. Intended for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.tags = make(map[string]struct{})
	r.mu.Unlock()
}
