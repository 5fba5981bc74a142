// Package inspect serves read-only diagnostics for a running container over
// HTTP. It lists registrations with their cache and initialization state,
// reports the health of resolved services, and identifies the container.
//
// The server is itself a container service: it binds its listener on
// InitializeAsync and shuts down on DisposeAsync, so registering it and
// resolving it with ResolveInitialized is all an application needs.
//
//	GET /info                  service and container identity
//	GET /registrations         every registration in registration order
//	GET /registrations/:key    a single registration, by its key string
//	GET /health                health of resolved services, 503 if unhealthy
package inspect
