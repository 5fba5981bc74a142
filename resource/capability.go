package resource

import (
	"context"
	"io"
)

// Disposable releases resources synchronously.
type Disposable interface {
	Dispose() error
}

// AsyncDisposable releases resources in an operation that may block until
// ctx is done.
type AsyncDisposable interface {
	DisposeAsync(ctx context.Context) error
}

// AsyncInitializer performs setup after construction. IsInitialized must
// report true only after InitializeAsync has succeeded.
type AsyncInitializer interface {
	IsInitialized() bool
	InitializeAsync(ctx context.Context) error
}

// DisposedReporter is optionally implemented by disposable objects that track
// whether they were already released. Objects reporting true are skipped.
type DisposedReporter interface {
	Disposed() bool
}

// IsDisposable reports whether obj can be released synchronously.
func IsDisposable(obj any) bool {
	switch obj.(type) {
	case Disposable, io.Closer:
		return true
	}
	return false
}

// IsAsyncDisposable reports whether obj exposes asynchronous disposal.
func IsAsyncDisposable(obj any) bool {
	_, ok := obj.(AsyncDisposable)
	return ok
}

// IsAsyncInitializer reports whether obj exposes asynchronous initialization.
func IsAsyncInitializer(obj any) bool {
	_, ok := obj.(AsyncInitializer)
	return ok
}
