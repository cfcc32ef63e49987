package signal

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyInitialized is returned by Init when the default registry is
// already running.
var ErrAlreadyInitialized = errors.New("default signal registry already initialized")

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Init creates the process-wide default registry.
func Init(opts ...Option) (*Registry, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRegistry != nil {
		return nil, ErrAlreadyInitialized
	}
	r, err := NewRegistry(opts...)
	if err != nil {
		return nil, err
	}
	defaultRegistry = r
	return r, nil
}

// Default returns the default registry, creating it with default options on
// first use.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRegistry == nil {
		r, err := NewRegistry()
		if err != nil {
			// Default options always form a valid pool configuration.
			panic(err)
		}
		defaultRegistry = r
	}
	return defaultRegistry
}

// Shutdown shuts down the default registry. A later Init or Default call
// starts a fresh one.
func Shutdown(ctx context.Context) error {
	defaultMu.Lock()
	r := defaultRegistry
	defaultRegistry = nil
	defaultMu.Unlock()

	if r == nil {
		return nil
	}
	return r.Shutdown(ctx)
}
