// Package resource defines the lifecycle capabilities a service instance may
// expose to its container, and helpers that probe for and invoke them.
//
// Capabilities are narrow interfaces checked per instance at runtime:
//
//   - Disposable: synchronous release, Dispose() error
//   - AsyncDisposable: release that may block, DisposeAsync(ctx) error
//   - AsyncInitializer: setup performed after construction, with a readiness flag
//
// io.Closer is accepted as a synchronous disposal capability as well, so
// clients from the standard library and most drivers participate without
// adapters.
package resource
