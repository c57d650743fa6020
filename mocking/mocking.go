// Package mocking holds the process-wide client patch table that test
// harnesses use to redirect AWS client construction.
//
// The table is deliberately explicit about being shared state: a harness
// first engages patching (usually in TestMain), scopes register a client
// factory per service name, and application code consults the table through
// its client constructor. Registration is single-writer per service;
// attempting to stack a second factory fails fast instead of silently
// replacing the first.
//
//	release := mocking.Engage()
//	defer release()
//
//	deregister, err := mocking.RegisterClientFactory("DynamoDB", factory)
//	...
//	defer deregister()
package mocking

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotEngaged is returned when a factory is registered before the
	// harness has engaged patching.
	ErrNotEngaged = errors.New("mocking: patching not engaged")

	// ErrFactoryRegistered is returned when a factory is registered for a
	// service that already has a live registration.
	ErrFactoryRegistered = errors.New("mocking: client factory already registered")
)

// ClientFactory builds a pre-configured client for the service it was
// registered under. The returned value is asserted to the concrete client
// type by the constructor that consulted the table.
type ClientFactory func(ctx context.Context) (any, error)

// patchTable is the single shared registration slot set. All access goes
// through its mutex; factories are invoked outside the lock.
type patchTable struct {
	mu        sync.Mutex
	engaged   bool
	factories map[string]ClientFactory
}

var table = &patchTable{factories: make(map[string]ClientFactory)}

// Engage turns patching on and returns a release function that turns it
// back off. Harnesses call it once, typically from TestMain, before any
// scope registers a factory.
func Engage() (release func()) {
	table.mu.Lock()
	table.engaged = true
	table.mu.Unlock()

	return func() {
		table.mu.Lock()
		table.engaged = false
		table.mu.Unlock()
	}
}

// Engaged reports whether patching is currently engaged.
func Engaged() bool {
	table.mu.Lock()
	defer table.mu.Unlock()
	return table.engaged
}

// RegisterClientFactory installs factory for the named service and returns
// the function that removes it. Registration requires patching to be
// engaged, and at most one factory may be live per service at a time.
func RegisterClientFactory(service string, factory ClientFactory) (deregister func(), err error) {
	table.mu.Lock()
	defer table.mu.Unlock()

	if !table.engaged {
		return nil, fmt.Errorf("%w (service %s)", ErrNotEngaged, service)
	}
	if _, exists := table.factories[service]; exists {
		return nil, fmt.Errorf("%w (service %s)", ErrFactoryRegistered, service)
	}
	table.factories[service] = factory

	return func() {
		table.mu.Lock()
		defer table.mu.Unlock()
		delete(table.factories, service)
	}, nil
}

// ClientFor returns the patched client for service. ok is false when
// patching is not engaged or no factory is registered, in which case the
// caller should construct its client normally. A factory failure is
// returned with ok true so callers do not fall back to a real endpoint.
func ClientFor(ctx context.Context, service string) (client any, ok bool, err error) {
	table.mu.Lock()
	factory, exists := table.factories[service]
	engaged := table.engaged
	table.mu.Unlock()

	if !engaged || !exists {
		return nil, false, nil
	}

	client, err = factory(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("mocking: client factory for %s: %w", service, err)
	}
	return client, true, nil
}
