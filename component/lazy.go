package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/svckit/logger"
)

// Lazy provides thread-safe deferred initialization. Embed a *Lazy in a
// service to make it a resource.AsyncInitializer and a resource.Disposable:
// the container then runs the initializer on ResolveInitialized and the
// closer on Dispose.
type Lazy struct {
	name        string
	mu          sync.RWMutex
	initialized bool
	lastError   error
	initializer func(ctx context.Context) error
	healthCheck func(ctx context.Context) error
	closer      func() error
}

// NewLazy creates a lazy initializer.
func NewLazy(name string, initializer func(context.Context) error) *Lazy {
	return &Lazy{
		name:        name,
		initializer: initializer,
	}
}

// Name returns the component name.
func (l *Lazy) Name() string {
	return l.name
}

// InitializeAsync runs the initializer unless it has already succeeded.
// Concurrent calls run it once; a failed attempt may be repeated.
func (l *Lazy) InitializeAsync(ctx context.Context) error {
	l.mu.RLock()
	if l.initialized {
		l.mu.RUnlock()
		return nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if l.initialized {
		return nil
	}

	if l.initializer == nil {
		return fmt.Errorf("no initializer for component: %s", l.name)
	}

	logger.Debug("Initializing lazy component", logger.Fields(logger.FieldComponent, l.name))

	if err := l.initializer(ctx); err != nil {
		l.lastError = err
		return fmt.Errorf("failed to initialize %s: %w", l.name, err)
	}

	l.initialized = true
	l.lastError = nil

	logger.Debug("Lazy component initialized", logger.Fields(logger.FieldComponent, l.name))
	return nil
}

// IsInitialized returns whether the initializer has succeeded.
func (l *Lazy) IsInitialized() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.initialized
}

// LastError returns the error of the most recent failed attempt, or nil.
func (l *Lazy) LastError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastError
}

// Health reports unhealthy until initialized, then the custom check result.
func (l *Lazy) Health(ctx context.Context) Health {
	if !l.IsInitialized() {
		msg := "not initialized"
		if err := l.LastError(); err != nil {
			msg = err.Error()
		}
		return Health{Name: l.name, Status: StatusUnhealthy, Message: msg}
	}
	if l.healthCheck != nil {
		if err := l.healthCheck(ctx); err != nil {
			return Health{Name: l.name, Status: StatusDegraded, Message: err.Error()}
		}
	}
	return Health{Name: l.name, Status: StatusHealthy}
}

// Dispose runs the closer if initialized and marks the component
// uninitialized.
func (l *Lazy) Dispose() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	wasInitialized := l.initialized
	l.initialized = false
	if l.closer != nil && wasInitialized {
		return l.closer()
	}
	return nil
}

// WithHealthCheck sets a custom health check function.
func (l *Lazy) WithHealthCheck(fn func(context.Context) error) *Lazy {
	l.healthCheck = fn
	return l
}

// WithCloser sets a custom close function.
func (l *Lazy) WithCloser(fn func() error) *Lazy {
	l.closer = fn
	return l
}
