// Package registry provides a concurrent string-keyed map whose entries are
// built lazily on first use.
//
// The registry never hands out access to its map. Callers get the stored
// value itself, so values that are shared between goroutines must do their
// own synchronization.
package registry

import (
	"sort"
	"sync"
)

// Builder creates the value for key. It runs at most once per stored key,
// while the registry's write lock is held.
type Builder[V any] func(key string) (V, error)

// Registry is safe for concurrent use.
type Registry[V any] struct {
	mu        sync.RWMutex
	data      map[string]V
	normalize func(string) string
}

type Option func(*options)

type options struct {
	normalize func(string) string
}

// WithNormalizer canonicalizes keys before every lookup and insert.
func WithNormalizer(fn func(string) string) Option {
	return func(o *options) { o.normalize = fn }
}

func New[V any](opts ...Option) *Registry[V] {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return &Registry[V]{
		data:      make(map[string]V),
		normalize: o.normalize,
	}
}

func (r *Registry[V]) key(k string) string {
	if r.normalize != nil {
		return r.normalize(k)
	}
	return k
}

// Get returns the value stored under key.
func (r *Registry[V]) Get(key string) (V, bool) {
	key = r.key(key)
	r.mu.RLock()
	v, ok := r.data[key]
	r.mu.RUnlock()
	return v, ok
}

// GetOrCreate returns the value stored under key, building and storing it
// if absent. The lookup and the insert form one atomic step: concurrent
// callers for the same key all receive the single value that was stored,
// and no caller observes a partially inserted entry. created reports
// whether this call built the value. A failed build stores nothing.
func (r *Registry[V]) GetOrCreate(key string, build Builder[V]) (v V, created bool, err error) {
	key = r.key(key)

	r.mu.RLock()
	v, ok := r.data[key]
	r.mu.RUnlock()
	if ok {
		return v, false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok = r.data[key]; ok {
		return v, false, nil
	}

	v, err = build(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	r.data[key] = v
	return v, true, nil
}

func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Keys returns all stored keys in lexicographic order.
func (r *Registry[V]) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Range calls fn for each entry in key order until fn returns false.
// It iterates over a snapshot, so fn may call back into the registry.
func (r *Registry[V]) Range(fn func(key string, v V) bool) {
	r.mu.RLock()
	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	snapshot := make(map[string]V, len(r.data))
	for k, v := range r.data {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		if !fn(k, snapshot[k]) {
			return
		}
	}
}
