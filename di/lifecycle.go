package di

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"

	"github.com/kbukum/svckit/errors"
	"github.com/kbukum/svckit/logger"
	"github.com/kbukum/svckit/observability"
	"github.com/kbukum/svckit/resource"
)

// ResolveInitialized resolves key and, when the instance is a
// resource.AsyncInitializer that has not completed initialization, runs
// InitializeAsync before returning it. Concurrent callers for the same key
// share one initialization. If ctx ends first the initialization keeps
// running and ctx.Err() is returned.
//
// A failed initialization is not retried by the container; the instance
// stays cached and the next call starts a new attempt.
func (c *Container) ResolveInitialized(ctx context.Context, key Key) (any, error) {
	return c.ResolveInitializedAsync(ctx, key).Await(ctx)
}

// ResolveInitializedAsync is ResolveInitialized without waiting.
func (c *Container) ResolveInitializedAsync(ctx context.Context, key Key) *resource.Future[any] {
	instance, err := c.Resolve(key)
	if err != nil {
		return resource.Completed[any](nil, err)
	}
	init, ok := instance.(resource.AsyncInitializer)
	if !ok || init.IsInitialized() {
		return resource.Completed(instance, nil)
	}
	return c.initialize(ctx, key, instance, init)
}

// initialize starts the initialization of key or joins the one in flight.
func (c *Container) initialize(ctx context.Context, key Key, instance any, init resource.AsyncInitializer) *resource.Future[any] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return resource.Completed[any](nil, errors.ContainerDisposed())
	}
	if f, ok := c.inits[key]; ok {
		return f
	}
	// Another caller may have finished between Resolve and here.
	if init.IsInitialized() {
		return resource.Completed(instance, nil)
	}

	f := resource.Go(ctx, func(ctx context.Context) (any, error) {
		defer func() {
			c.mu.Lock()
			delete(c.inits, key)
			c.mu.Unlock()
		}()
		if err := c.runInitializer(ctx, key, init); err != nil {
			return nil, errors.InitializationFailed(key.String(), err)
		}
		return instance, nil
	})
	c.inits[key] = f
	return f
}

func (c *Container) runInitializer(ctx context.Context, key Key, init resource.AsyncInitializer) (err error) {
	ctx, span := c.instruments.StartSpan(ctx, observability.SpanInitialize,
		attribute.String(observability.AttrContainerID, c.id),
		attribute.String(observability.AttrKey, key.String()),
	)
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		status := observability.StatusOK
		fields := logger.Fields(logger.FieldKey, key.String(), logger.FieldDuration, time.Since(start).Milliseconds())
		if err != nil {
			status = observability.StatusError
			c.log.Warn("Service initialization failed", logger.MergeWithError(fields, err))
		} else {
			c.log.Debug("Service initialized", fields)
		}
		c.instruments.RecordInitialization(ctx, key.String(), status, time.Since(start))
		observability.EndSpan(span, err)
	}()

	c.log.Debug("Initializing service", logger.Fields(logger.FieldKey, key.String()))
	return init.InitializeAsync(ctx)
}

// Dispose releases every resolved instance in reverse resolution order and
// marks the container disposed. In-flight initializations are awaited first.
// Each instance is released through the first capability it exposes, in the
// order resource.Disposable, io.Closer, resource.AsyncDisposable; instances
// with none are skipped and an object cached under several keys is released
// once. Every instance is attempted; the failures are returned together.
//
// Dispose is idempotent. After it returns, resolution fails with
// CONTAINER_DISPOSED.
func (c *Container) Dispose(ctx context.Context) (err error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	pending := make([]*resource.Future[any], 0, len(c.inits))
	for _, f := range c.inits {
		pending = append(pending, f)
	}
	entries := c.resolvedLocked()
	c.mu.Unlock()

	ctx, span := c.instruments.StartSpan(ctx, observability.SpanDispose,
		attribute.String(observability.AttrContainerID, c.id),
		attribute.Int(observability.AttrCount, len(entries)),
	)
	defer func() { observability.EndSpan(span, err) }()

wait:
	for _, f := range pending {
		select {
		case <-f.Done():
		case <-ctx.Done():
			err = multierr.Append(err, errors.Timeout("initialization wait").WithCause(ctx.Err()))
			break wait
		}
	}

	seen := make(map[identity]struct{}, len(entries))
	disposed := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Instance == nil {
			continue
		}
		if id, ok := identityOf(e.Instance); ok {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}

		ran, derr := disposeInstance(ctx, e.Instance)
		if !ran && derr == nil {
			continue
		}
		if derr != nil {
			c.instruments.RecordDisposal(ctx, observability.StatusError)
			c.log.Error("Service disposal failed", logger.MergeWithError(logger.Fields(logger.FieldKey, e.Key.String()), derr))
			err = multierr.Append(err, errors.DisposalFailed(e.Key.String(), derr))
			continue
		}
		disposed++
		c.instruments.RecordDisposal(ctx, observability.StatusOK)
		c.log.Debug("Service disposed", logger.Fields(logger.FieldKey, e.Key.String()))
	}

	c.mu.Lock()
	c.cache = make(map[Key]*entry)
	c.resolved = nil
	c.mu.Unlock()

	c.log.Info("Container disposed", logger.Fields(
		logger.FieldCount, disposed,
		"failures", len(multierr.Errors(err)),
	))
	return err
}

func disposeInstance(ctx context.Context, instance any) (ran bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ran, err = true, fmt.Errorf("panic: %v", p)
		}
	}()
	return resource.DisposeObject(ctx, instance)
}

// identity is the address of a reference-like instance together with its
// dynamic type.
type identity struct {
	t   reflect.Type
	ptr uintptr
}

// identityOf returns the identity of instances that share state when copied.
// Value types have none: equal values held under different keys are
// distinct objects.
func identityOf(instance any) (identity, bool) {
	v := reflect.ValueOf(instance)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			return identity{}, false
		}
		return identity{t: v.Type(), ptr: v.Pointer()}, true
	}
	return identity{}, false
}
