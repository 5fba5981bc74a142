package di

import (
	"context"
	"fmt"
	"reflect"

	"github.com/kbukum/svckit/errors"
)

// Resolve resolves key and asserts the instance to T.
//
// Example:
//
//	repo, err := di.Resolve[*Repository](c, di.TypeKey[*Repository]())
//	if err != nil {
//	    return fmt.Errorf("failed to get repository: %w", err)
//	}
func Resolve[T any](r Resolver, key Key) (T, error) {
	instance, err := r.Resolve(key)
	if err != nil {
		var zero T
		return zero, err
	}
	return assert[T](key, instance)
}

// ResolveType resolves the type key of T.
func ResolveType[T any](r Resolver) (T, error) {
	return Resolve[T](r, TypeKey[T]())
}

// MustResolve is Resolve that panics on failure. Use it where a missing
// dependency is a programming error, such as in module wiring.
func MustResolve[T any](r Resolver, key Key) T {
	v, err := Resolve[T](r, key)
	if err != nil {
		panic(fmt.Sprintf("di: failed to resolve %s: %v", key, err))
	}
	return v
}

// TryResolve resolves an optional dependency. It returns false if the key
// cannot be resolved or the instance is not a T.
//
// Example:
//
//	if metrics, ok := di.TryResolve[MetricsClient](c, di.Name("metrics")); ok {
//	    metrics.RecordEvent(...)
//	}
func TryResolve[T any](r Resolver, key Key) (T, bool) {
	instance, ok := r.TryResolve(key)
	if !ok {
		var zero T
		return zero, false
	}
	v, err := assert[T](key, instance)
	return v, err == nil
}

// ResolveInitialized is Container.ResolveInitialized with a type assertion.
func ResolveInitialized[T any](ctx context.Context, c *Container, key Key) (T, error) {
	instance, err := c.ResolveInitialized(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return assert[T](key, instance)
}

func assert[T any](key Key, instance any) (T, error) {
	var zero T
	if instance == nil {
		return zero, nil
	}
	v, ok := instance.(T)
	if !ok {
		return zero, errors.TypeMismatch(key.String(), instance, reflect.TypeFor[T]().String())
	}
	return v, nil
}
