// Package bootstrap orchestrates the lifecycle of a svckit service around a
// dependency-injection container.
//
// An App validates the typed configuration, initializes logging and
// telemetry, and owns a di.Builder. Once modules are installed, Run builds
// the container, initializes the eager services in order, runs the hooks,
// waits for a signal and disposes the container within the graceful timeout.
//
// # Quick Start
//
//	app, err := bootstrap.NewApp(&cfg, bootstrap.WithModules(storage.Module))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.RegisterComponent(queueConsumer)
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The config, the logger and, when enabled, the inspector are registered
// under the di.Base keys.
package bootstrap
