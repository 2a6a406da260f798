package circuit

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var ErrCircuitNotFound = errors.New("circuit not found")

type entry struct {
	mu      sync.Mutex // exclusive access to circuit
	circuit *Circuit
}

// Registry owns circuits by identifier and serializes operations on each
// circuit. Different circuits can be worked on concurrently.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Create makes an empty circuit and returns its identifier.
func (r *Registry) Create(name string) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.entries[id] = &entry{circuit: New(name)}
	r.mu.Unlock()

	return id
}

// Do runs fn with exclusive access to the circuit.
func (r *Registry) Do(id string, fn func(*Circuit) error) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrCircuitNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.circuit == nil {
		// deleted while waiting
		return fmt.Errorf("%w: %s", ErrCircuitNotFound, id)
	}
	return fn(e.circuit)
}

// Delete drops the circuit. Operations already holding it finish first.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.circuit = nil
		e.mu.Unlock()
	}
	return ok
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
