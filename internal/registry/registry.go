// Package registry maps handler identifiers to Handler implementations.
// Status nodes reference handlers by identifier so bindings can be added or
// overridden without touching the engine.
package registry

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

// Registry is populated at startup and read on every transition.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]api.Handler
}

func New() *Registry {
	return &Registry{handlers: make(map[string]api.Handler)}
}

// Register binds h to id. Registering the same id twice is an error; use
// Override to swap a binding deliberately (tests, canary handlers).
func (r *Registry) Register(id string, h api.Handler) error {
	if id == "" {
		return errors.New("handler id is required")
	}
	if h == nil {
		return errors.New("handler is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[id]; ok {
		return errors.Errorf("handler already registered: %s", id)
	}
	r.handlers[id] = h
	return nil
}

// Override binds h to id, replacing any existing binding.
func (r *Registry) Override(id string, h api.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = h
}

// Resolve returns the handler bound to id. A missing binding is a
// configuration error: a status node expects side effects the process
// cannot deliver, so the engine fails closed.
func (r *Registry) Resolve(id string) (api.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[id]
	if !ok {
		return nil, errors.Wrapf(api.ErrConfiguration, "handler %s", id)
	}
	return h, nil
}
