package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live takers by opaque session id. Sessions are ephemeral:
// they exist only here, never in the store, and disappear when finished.
// Nothing makes a session a singleton; any number may coexist.
type Registry struct {
	mu     sync.Mutex
	takers map[string]*Taker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{takers: make(map[string]*Taker)}
}

// Add registers a taker and returns its new session id.
func (r *Registry) Add(t *Taker) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.takers[id] = t
	r.mu.Unlock()
	return id
}

// Get returns the taker for a session id, or nil when unknown.
func (r *Registry) Get(id string) *Taker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.takers[id]
}

// Remove drops a session id. Unknown ids are a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.takers, id)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.takers)
}
