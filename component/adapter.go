package component

import (
	"context"
	"reflect"
	"sync"

	"github.com/kbukum/svckit/di"
	"github.com/kbukum/svckit/errors"
)

// Managed runs a Component under a container: InitializeAsync starts it and
// DisposeAsync stops it if it was started.
type Managed struct {
	component Component

	mu      sync.Mutex
	started bool
}

// Adapt wraps c for registration in a container.
func Adapt(c Component) *Managed {
	return &Managed{component: c}
}

// Component returns the wrapped component.
func (m *Managed) Component() Component { return m.component }

// Name returns the component name.
func (m *Managed) Name() string { return m.component.Name() }

// IsInitialized reports whether the component has been started.
func (m *Managed) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// InitializeAsync starts the component.
func (m *Managed) InitializeAsync(ctx context.Context) error {
	if err := m.component.Start(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	return nil
}

// DisposeAsync stops the component if it was started.
func (m *Managed) DisposeAsync(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.started = false
	m.mu.Unlock()
	if !started {
		return nil
	}
	return m.component.Stop(ctx)
}

// Health delegates to the component.
func (m *Managed) Health(ctx context.Context) Health {
	return m.component.Health(ctx)
}

// Describe delegates to the component when it is Describable.
func (m *Managed) Describe() Description {
	if d, ok := m.component.(Describable); ok {
		return d.Describe()
	}
	return Description{Name: m.component.Name()}
}

// Key returns the key a component is registered under by Module.
func Key(name string) di.Key {
	return di.Name("component:" + name)
}

// Module registers each component, adapted, under Key(c.Name()).
func Module(components ...Component) di.Module {
	return di.ModuleFunc(func(b *di.Builder) {
		for _, c := range components {
			b.Instance(Adapt(c), Key(c.Name()))
		}
	})
}

// Resolve returns the component registered by Module under name.
func Resolve[T Component](r di.Resolver, name string) (T, error) {
	m, err := di.Resolve[*Managed](r, Key(name))
	if err != nil {
		var zero T
		return zero, err
	}
	c, ok := m.component.(T)
	if !ok {
		var zero T
		return zero, errors.TypeMismatch(Key(name).String(), m.component, reflect.TypeFor[T]().String())
	}
	return c, nil
}
