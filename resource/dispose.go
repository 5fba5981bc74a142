package resource

import (
	"context"
	"io"
)

// Dispose releases obj synchronously if it is Disposable or an io.Closer.
// It reports whether a synchronous capability was found.
func Dispose(obj any) (bool, error) {
	switch d := obj.(type) {
	case Disposable:
		return true, d.Dispose()
	case io.Closer:
		return true, d.Close()
	}
	return false, nil
}

// DisposeAsync releases obj through its asynchronous capability. It reports
// whether the capability was found.
func DisposeAsync(ctx context.Context, obj any) (bool, error) {
	d, ok := obj.(AsyncDisposable)
	if !ok {
		return false, nil
	}
	return true, d.DisposeAsync(ctx)
}

// DisposeObject releases obj with the first capability it exposes:
// synchronous disposal is preferred over asynchronous. Objects without any
// capability, and objects already reporting Disposed, are skipped. The
// returned bool reports whether a disposal operation ran.
func DisposeObject(ctx context.Context, obj any) (bool, error) {
	if obj == nil {
		return false, nil
	}
	if r, ok := obj.(DisposedReporter); ok && r.Disposed() {
		return false, nil
	}
	if ok, err := Dispose(obj); ok {
		return true, err
	}
	return DisposeAsync(ctx, obj)
}
