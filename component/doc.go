// Package component defines lifecycle-managed services for svckit
// containers.
//
// A Component is a long-lived service with explicit Start and Stop
// operations, such as a server or a connection pool. Adapt wraps one so the
// container starts it on ResolveInitialized and stops it on Dispose, and
// Module registers several at once. Lazy is an embeddable helper for
// services that perform their own deferred initialization.
//
// # Interfaces
//
//   - Component: core lifecycle interface (Start/Stop/Health)
//   - HealthChecker: health status reporting
//   - Describable: startup summary descriptions
package component
