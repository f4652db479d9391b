// Package registry maps backend names from configuration to constructors.
// Backend packages register themselves from init.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/carelingo/carelingo/internal/inference/engine"
)

// ErrUnknownBackend is returned by Create for unregistered names.
var ErrUnknownBackend = errors.New("unknown backend")

// Factory builds a backend from its string config map.
type Factory[T any] func(config map[string]string) (T, error)

// Registry is a set of named factories. Names are case-insensitive.
type Registry[T any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

func New[T any]() *Registry[T] {
	return &Registry[T]{factories: make(map[string]Factory[T])}
}

var (
	// Hosted holds credentialed remote chat backends.
	Hosted = New[engine.ChatBackend]()
	// Local holds credential-free chat backends on the machine or LAN.
	Local = New[engine.ChatBackend]()
	// Speech holds speech-to-text backends.
	Speech = New[engine.Transcriber]()
)

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a factory, replacing any previous one with the same name.
func (r *Registry[T]) Register(name string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key(name)] = factory
}

// Create builds the named backend. Unknown names list what is registered.
func (r *Registry[T]) Create(name string, config map[string]string) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[key(name)]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, fmt.Errorf("%w %q (registered: %s)", ErrUnknownBackend, name, strings.Join(r.List(), ", "))
	}
	return factory(config)
}

func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[key(name)]
	return ok
}

// List returns the registered names in sorted order.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
