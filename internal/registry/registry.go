// Package registry resolves cross-document references against the collections known
// to the process. The registry is built once at startup and never changes afterwards.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/fct/fct/backend/go-services/internal/objectid"
	"github.com/fct/fct/backend/go-services/internal/store"
)

// Source is a collection references can point into. store.Store satisfies it.
type Source interface {
	Collection() string
	FindByID(ctx context.Context, id objectid.ID) (store.Record, error)
}

// Registry is an immutable list of sources.
type Registry struct {
	sources []Source
}

func New(sources ...Source) *Registry {
	return &Registry{sources: append([]Source(nil), sources...)}
}

// Lookup scans the sources for the named collection.
func (r *Registry) Lookup(collection string) (Source, bool) {
	if r == nil {
		return nil, false
	}
	for _, s := range r.sources {
		if s.Collection() == collection {
			return s, true
		}
	}
	return nil, false
}

// Collections lists the registered collection names in registration order.
func (r *Registry) Collections() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.sources))
	for i, s := range r.sources {
		out[i] = s.Collection()
	}
	return out
}

var (
	defaultMu  sync.RWMutex
	defaultReg *Registry
)

var ErrAlreadyInitialized = errors.New("registry already initialized")

// Init installs the process-wide registry. It succeeds once.
func Init(sources ...Source) (*Registry, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReg != nil {
		return nil, ErrAlreadyInitialized
	}
	defaultReg = New(sources...)
	return defaultReg, nil
}

// Default returns the process-wide registry, or nil before Init.
func Default() *Registry {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultReg
}
