package stream

import (
	"sort"
	"sync"
)

// Registry tracks the set of active logical subscriptions independent of
// connection state. It is the single source of truth for what the client
// should be subscribed to: after a reconnect the connection state machine
// replays every key currently registered.
//
// All methods are safe for concurrent use. The lock guards only the in-memory
// set; the registry performs no I/O.
type Registry struct {
	mu   sync.Mutex
	keys map[Key]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		keys: make(map[Key]struct{}),
	}
}

// Add registers a key. Returns false if the key was already present.
func (r *Registry) Add(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[key]; ok {
		return false
	}

	r.keys[key] = struct{}{}

	return true
}

// Remove unregisters a key. Returns false if the key was not present.
func (r *Registry) Remove(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[key]; !ok {
		return false
	}

	delete(r.keys, key)

	return true
}

// Contains reports whether the key is registered.
func (r *Registry) Contains(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.keys[key]

	return ok
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.keys)
}

// Clear atomically drains the registry and returns the removed keys so the
// caller can send one unsubscribe per drained key.
func (r *Registry) Clear() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make([]Key, 0, len(r.keys))
	for key := range r.keys {
		removed = append(removed, key)
	}

	r.keys = make(map[Key]struct{})
	sortKeys(removed)

	return removed
}

// Snapshot returns a copy of the registered keys.
func (r *Registry) Snapshot() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]Key, 0, len(r.keys))
	for key := range r.keys {
		keys = append(keys, key)
	}

	sortKeys(keys)

	return keys
}

// sortKeys orders keys by stream name so replay and logs are deterministic.
func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].StreamName() < keys[j].StreamName()
	})
}
