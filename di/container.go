package di

import (
	"sync"

	"github.com/kbukum/svckit/logger"
	"github.com/kbukum/svckit/observability"
	"github.com/kbukum/svckit/resource"
)

// Resolver looks up instances. Both *Container and the handle passed to
// factories implement it.
type Resolver interface {
	// Resolve returns the instance for key, constructing it and its
	// dependencies on first use.
	Resolve(key Key) (any, error)
	// TryResolve is Resolve that reports failure as false.
	TryResolve(key Key) (any, bool)
	// Has reports whether key is registered.
	Has(key Key) bool
}

// State is the cache state of a registration.
type State int

const (
	StateUnresolved State = iota
	StateResolving
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	default:
		return "unresolved"
	}
}

type entry struct {
	state    State
	instance any

	// While resolving: the resolution constructing the key, and a channel
	// closed when it finishes.
	owner *resolution
	done  chan struct{}
}

// Container resolves registrations into singletons. Each key yields the same
// instance for the lifetime of the container. The lock guards bookkeeping
// only; constructors, factories, initialization and disposal run outside it,
// so user code may call back into the container.
type Container struct {
	id            string
	registrations map[Key]Descriptor
	order         []Key
	log           *logger.Logger
	instruments   *observability.Instruments

	mu       sync.Mutex
	cache    map[Key]*entry
	resolved []Key
	inits    map[Key]*resource.Future[any]
	disposed bool
}

var _ Resolver = (*Container)(nil)

// ID returns the unique identifier of the container, as logged.
func (c *Container) ID() string { return c.id }

// Resolve returns the instance for key, constructing it and its dependencies
// on first use.
func (c *Container) Resolve(key Key) (any, error) {
	r := &resolution{c: c}
	defer r.done.Store(true)
	return r.resolve(key)
}

// TryResolve is Resolve that reports any failure, including an unknown key or
// a disposed container, as false.
func (c *Container) TryResolve(key Key) (any, bool) {
	instance, err := c.Resolve(key)
	if err != nil {
		c.log.Debug("Optional resolution failed", logger.MergeWithError(logger.Fields(logger.FieldKey, key.String()), err))
		return nil, false
	}
	return instance, true
}

// Has reports whether key is registered.
func (c *Container) Has(key Key) bool {
	_, ok := c.registrations[key]
	return ok
}

// Disposed reports whether Dispose has been called.
func (c *Container) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// RegistrationInfo describes a registration for introspection.
type RegistrationInfo struct {
	Key          Key
	Kind         Kind
	State        State
	Initialized  bool
	Dependencies []Key
}

// Registrations describes every registration in registration order.
// Initialized is true for resolved instances that need no asynchronous
// initialization or have completed it.
func (c *Container) Registrations() []RegistrationInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]RegistrationInfo, 0, len(c.order))
	for _, key := range c.order {
		d := c.registrations[key]
		info := RegistrationInfo{Key: key, Kind: d.kind, Dependencies: d.Dependencies()}
		if e, ok := c.cache[key]; ok {
			info.State = e.state
			if e.state == StateResolved {
				info.Initialized = initialized(e.instance)
			}
		}
		result = append(result, info)
	}
	return result
}

// ResolvedEntry is a constructed instance and its key.
type ResolvedEntry struct {
	Key      Key
	Instance any
}

// Resolved returns the constructed instances in resolution order.
func (c *Container) Resolved() []ResolvedEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolvedLocked()
}

func (c *Container) resolvedLocked() []ResolvedEntry {
	result := make([]ResolvedEntry, 0, len(c.resolved))
	for _, key := range c.resolved {
		result = append(result, ResolvedEntry{Key: key, Instance: c.cache[key].instance})
	}
	return result
}

func initialized(instance any) bool {
	if init, ok := instance.(resource.AsyncInitializer); ok {
		return init.IsInitialized()
	}
	return true
}
