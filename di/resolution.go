package di

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"
	"time"

	"github.com/kbukum/svckit/errors"
	"github.com/kbukum/svckit/logger"
	"github.com/kbukum/svckit/observability"
)

// resolution is one top-level Resolve call. It carries the path of keys
// being constructed so re-entry can be reported as a cycle, and it is the
// Resolver handed to factories. Once the top-level call returns the handle
// delegates to the container, which starts a fresh resolution.
//
// The container lock is never held while user code runs. A key under
// construction is owned by one resolution; others wait for it to finish,
// unless that would close a cycle through the resolutions already waiting.
type resolution struct {
	c    *Container
	path []Key
	done atomic.Bool

	// waiting is the resolution this one is blocked on, guarded by c.mu.
	waiting *resolution
}

func (r *resolution) Resolve(key Key) (any, error) {
	if r.done.Load() {
		return r.c.Resolve(key)
	}
	return r.resolve(key)
}

func (r *resolution) TryResolve(key Key) (any, bool) {
	if r.done.Load() {
		return r.c.TryResolve(key)
	}
	instance, err := r.resolve(key)
	if err != nil {
		r.c.log.Debug("Optional resolution failed", logger.MergeWithError(logger.Fields(logger.FieldKey, key.String()), err))
		return nil, false
	}
	return instance, true
}

func (r *resolution) Has(key Key) bool {
	return r.c.Has(key)
}

// blocks reports whether r is owner itself or one of the resolutions owner
// is transitively waiting on. Called with c.mu held.
func (r *resolution) blocks(owner *resolution) bool {
	for w := owner; w != nil; w = w.waiting {
		if w == r {
			return true
		}
	}
	return false
}

// claim returns the cached instance for key, or marks key as resolving
// under r and returns the entry r must complete.
func (r *resolution) claim(key Key) (instance any, claimed *entry, err error) {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if c.disposed {
			return nil, nil, errors.ContainerDisposed()
		}
		e, ok := c.cache[key]
		if !ok {
			break
		}
		if e.state == StateResolved {
			return e.instance, nil, nil
		}
		if r.blocks(e.owner) {
			return nil, nil, errors.CircularDependency(r.chain(key))
		}
		r.waiting = e.owner
		c.mu.Unlock()
		<-e.done
		c.mu.Lock()
		r.waiting = nil
	}

	if _, ok := c.registrations[key]; !ok {
		return nil, nil, errors.UnknownService(key.String())
	}
	claimed = &entry{state: StateResolving, owner: r, done: make(chan struct{})}
	c.cache[key] = claimed
	return nil, claimed, nil
}

// settle records the outcome of constructing key and releases its waiters.
// An instance finished after the container was disposed is released and
// reported as CONTAINER_DISPOSED.
func (r *resolution) settle(key Key, e *entry, instance any, err error) (any, error) {
	c := r.c
	c.mu.Lock()
	disposed := c.disposed
	if c.cache[key] == e {
		delete(c.cache, key)
	}
	if err == nil && !disposed {
		c.cache[key] = &entry{state: StateResolved, instance: instance}
		c.resolved = append(c.resolved, key)
	}
	close(e.done)
	c.mu.Unlock()

	if err == nil && disposed {
		if _, derr := disposeInstance(context.Background(), instance); derr != nil {
			c.log.Error("Service disposal failed", logger.MergeWithError(logger.Fields(logger.FieldKey, key.String()), derr))
		}
		return nil, errors.ContainerDisposed()
	}
	return instance, err
}

func (r *resolution) resolve(key Key) (any, error) {
	c := r.c
	instance, e, err := r.claim(key)
	if err != nil || e == nil {
		return instance, err
	}

	d := c.registrations[key]
	r.path = append(r.path, key)
	start := time.Now()
	instance, err = r.construct(key, d)
	r.path = r.path[:len(r.path)-1]

	instance, err = r.settle(key, e, instance, err)
	if err != nil {
		c.instruments.RecordResolution(context.Background(), d.kind.String(), observability.StatusError)
		return nil, err
	}
	c.instruments.RecordResolution(context.Background(), d.kind.String(), observability.StatusOK)
	c.log.Debug("Service resolved", logger.Fields(
		logger.FieldKey, key.String(),
		logger.FieldKind, d.kind.String(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return instance, nil
}

// chain renders the cycle closed by key, e.g. A -> B -> A.
func (r *resolution) chain(key Key) []string {
	start := slices.Index(r.path, key)
	if start < 0 {
		start = 0
	}
	chain := make([]string, 0, len(r.path)-start+1)
	for _, k := range r.path[start:] {
		chain = append(chain, k.String())
	}
	return append(chain, key.String())
}

// construct builds the instance for d and applies its property injections.
// Panics from user code are reported as resolution failures.
func (r *resolution) construct(key Key, d Descriptor) (instance any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.ResolutionFailed(key.String(), fmt.Errorf("panic: %v", p))
		}
	}()

	switch d.kind {
	case KindInstance:
		instance = d.value
	case KindClass, KindConstructor:
		if d.alloc != nil {
			instance = reflect.New(d.alloc.Elem()).Interface()
		} else {
			instance, err = r.call(key, d)
		}
	case KindFactory:
		instance, err = d.factory(r)
	default:
		err = fmt.Errorf("unknown descriptor kind %s", d.kind)
	}
	if err != nil {
		return nil, wrapFailure(key, err)
	}

	for _, p := range d.props {
		if err := r.inject(instance, p); err != nil {
			return nil, wrapFailure(key, err)
		}
	}
	return instance, nil
}

// call resolves the constructor dependencies in order and invokes it.
func (r *resolution) call(key Key, d Descriptor) (any, error) {
	ft := d.ctor.Type()
	args := make([]reflect.Value, len(d.deps))
	for i, dep := range d.deps {
		v, err := r.resolve(dep)
		if err != nil {
			return nil, err
		}
		arg, err := assignable(v, ft.In(i))
		if err != nil {
			return nil, fmt.Errorf("parameter %d (%s): %w", i, dep, err)
		}
		args[i] = arg
	}

	out := d.ctor.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// inject resolves p.Key and assigns it to the field of instance.
func (r *resolution) inject(instance any, p PropertySpec) error {
	target := reflect.ValueOf(instance)
	if target.Kind() != reflect.Pointer || target.IsNil() || target.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("cannot inject %q into %T: not a pointer to struct", p.Field, instance)
	}
	field := target.Elem().FieldByName(p.Field)
	if !field.IsValid() || !field.CanSet() {
		return fmt.Errorf("%T has no settable field %q", instance, p.Field)
	}
	v, err := r.resolve(p.Key)
	if err != nil {
		return err
	}
	value, err := assignable(v, field.Type())
	if err != nil {
		return fmt.Errorf("field %s (%s): %w", p.Field, p.Key, err)
	}
	field.Set(value)
	return nil
}

// assignable converts a resolved instance to a value of type t.
func assignable(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not assignable to %s", t)
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", rv.Type(), t)
	}
	return rv, nil
}

// wrapFailure attributes err to key unless it already carries a code, so the
// innermost failing key is the one reported.
func wrapFailure(key Key, err error) error {
	if errors.IsAppError(err) {
		return err
	}
	return errors.ResolutionFailed(key.String(), err)
}
