package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/kbukum/svckit/component"
	"github.com/kbukum/svckit/di"
	"github.com/kbukum/svckit/inspect"
	"github.com/kbukum/svckit/logger"
	"github.com/kbukum/svckit/observability"
	"github.com/kbukum/svckit/version"
)

// App represents a generic application with uniform lifecycle management.
// The type parameter C is the config type, which must satisfy the Config interface.
// Any struct embedding config.ServiceConfig automatically satisfies Config.
//
// Example:
//
//	app, err := bootstrap.NewApp(&myConfig)
//	app.Builder.ConstructorInject(NewBillingService, di.DependsOn(di.Base.Config))
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*MyConfig]) error {
//	    _, err := di.Resolve[*BillingService](a.Container, di.TypeKey[*BillingService]())
//	    return err
//	})
//	app.Run(context.Background())
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	// Builder collects registrations until the container is built at startup.
	Builder *di.Builder
	// Container is nil until startup.
	Container *di.Container
	Logger    *logger.Logger
	Summary   *Summary

	gracefulTimeout time.Duration
	eager           []di.Key
	onConfigure     []func(ctx context.Context, app *App[C]) error

	onStart []Hook
	onReady []Hook
	onStop  []Hook

	// shutdowns flush and stop telemetry providers.
	shutdowns []func(context.Context) error
}

// NewApp creates a new application instance from a typed config.
// It applies defaults, validates the config, initializes the logger and
// telemetry, and registers the base services in a fresh builder.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	if base.Version == "" {
		base.Version = version.Get().Short()
	}

	o := resolveOptions(opts)
	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: base.Container.DisposeTimeout,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}

	// Logger: use custom if provided, otherwise init from config.
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	// Telemetry is installed before the builder so the container records
	// into the configured providers.
	if err := app.initTelemetry(context.Background()); err != nil {
		return nil, err
	}

	builderOpts := append([]di.BuilderOption{di.WithLogger(app.Logger)}, o.builderOpts...)
	app.Builder = di.NewBuilder(builderOpts...).
		Instance(cfg, di.Base.Config).
		Instance(app.Logger, di.Base.Logger)

	if base.Inspect.Enabled {
		info := inspect.Info{Service: base.Name, Version: base.Version, Environment: base.Environment}
		app.Builder.Factory(di.Base.Inspector, func(di.Resolver) (any, error) {
			return inspect.New(base.Inspect, app.Container, info, app.Logger), nil
		})
	}
	app.Builder.Use(o.modules...)

	app.Summary = NewSummary(base.Name, base.Version)
	if o.output != nil {
		app.Summary.SetOutput(o.output)
	}
	return app, nil
}

// Use installs modules into the builder.
func (a *App[C]) Use(modules ...di.Module) {
	a.Builder.Use(modules...)
}

// RegisterComponent registers a component, adapted, under component.Key
// and starts it at startup. Components start in registration order and
// stop in reverse order when the container is disposed.
func (a *App[C]) RegisterComponent(c component.Component) {
	a.Builder.Use(component.Module(c))
	a.eager = append(a.eager, component.Key(c.Name()))
}

// OnConfigure registers a callback to run during the configure phase.
// Use this to set up business-layer dependencies after infrastructure is started.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// ReadyCheck verifies that all resolved services reporting health are healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	if a.Container == nil {
		return nil
	}
	var unhealthy []string
	for _, h := range component.HealthAll(ctx, a.Container) {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run executes the full application lifecycle for long-running services:
// Build → Initialize eager services → OnStart hooks → Configure →
// ReadyCheck → OnReady hooks → Block on signal → OnStop hooks → Dispose.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)

	return a.stop()
}

// RunTask executes a finite task with the full bootstrap lifecycle.
// Unlike Run, it does not block on shutdown signals: it runs the task
// and shuts down when the task completes or the context is canceled
// (for example by SIGINT/SIGTERM).
//
// Example:
//
//	app, _ := bootstrap.NewApp(&cfg)
//	app.RunTask(ctx, func(ctx context.Context) error {
//	    return processData(ctx)
//	})
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, canceling task", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

// startup builds the container and runs the startup sequence shared by Run
// and RunTask. On failure, everything already started is released.
func (a *App[C]) startup(ctx context.Context) (err error) {
	start := time.Now()

	a.Logger.Info("Starting application", logger.Fields(
		"name", a.Name,
		"version", a.Version,
	))

	defer func() {
		if err != nil {
			if releaseErr := a.release(context.Background()); releaseErr != nil {
				a.Logger.WithError(releaseErr).Error("Release after failed startup")
			}
		}
	}()

	c, err := a.Builder.Build()
	if err != nil {
		return fmt.Errorf("container build failed: %w", err)
	}
	a.Container = c

	// Phase 1: Initialize eager services
	if err := a.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	// Phase 2: Configure
	if err := a.configure(ctx); err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.DisplaySummary()
	return nil
}

// eagerKeys lists the services initialized at startup: registered
// components, then the configured keys, then the inspector.
func (a *App[C]) eagerKeys() []di.Key {
	base := a.Cfg.GetServiceConfig()
	keys := make([]di.Key, 0, len(a.eager)+len(base.Container.Eager)+1)
	seen := make(map[di.Key]bool)
	add := func(k di.Key) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range a.eager {
		add(k)
	}
	for _, name := range base.Container.Eager {
		add(di.Name(name))
	}
	if base.Inspect.Enabled {
		add(di.Base.Inspector)
	}
	return keys
}

// initialize resolves and initializes the eager services in order, each
// bounded by the configured init timeout (Phase 1).
func (a *App[C]) initialize(ctx context.Context) error {
	keys := a.eagerKeys()
	a.Logger.Info("Phase 1: Initializing services", logger.Fields(logger.FieldCount, len(keys)))

	timeout := a.Cfg.GetServiceConfig().Container.InitTimeout
	for _, key := range keys {
		if err := a.initializeOne(ctx, key, timeout); err != nil {
			a.Summary.TrackService(key.String(), "failed", false)
			return err
		}
		a.Summary.TrackService(key.String(), "initialized", true)
	}

	a.Logger.Info("Phase 1: All services initialized")
	return nil
}

func (a *App[C]) initializeOne(ctx context.Context, key di.Key, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if _, err := a.Container.ResolveInitialized(ctx, key); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", key, err)
	}
	return nil
}

// DisplaySummary prints the startup summary.
func (a *App[C]) DisplaySummary() {
	a.Summary.DisplaySummary(a.Container)
}

// configure runs registered configuration callbacks (Phase 2).
func (a *App[C]) configure(ctx context.Context) error {
	if len(a.onConfigure) == 0 {
		return nil
	}

	a.Logger.Info("Phase 2: Running configuration callbacks", logger.Fields(logger.FieldCount, len(a.onConfigure)))

	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}

	a.Logger.Info("Phase 2: Configuration complete")
	return nil
}

// WaitForSignal blocks until an OS interrupt/term signal or context cancellation.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal, graceful shutdown starting", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown performs graceful shutdown. Use when managing your own lifecycle.
func (a *App[C]) Shutdown(ctx context.Context) error {
	return a.stop()
}

// stop runs the OnStop hooks and releases the container within the
// graceful timeout.
func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = multierr.Append(shutdownErr, err)
	}

	if err := a.release(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = multierr.Append(shutdownErr, err)
	}

	a.Logger.Info("Application shutdown complete")
	return shutdownErr
}

// release disposes the container, if built, then shuts telemetry down.
func (a *App[C]) release(ctx context.Context) error {
	var err error
	if a.Container != nil {
		err = multierr.Append(err, a.Container.Dispose(ctx))
	}
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.shutdowns[i](ctx))
	}
	a.shutdowns = nil
	return err
}

// initTelemetry installs the OTLP tracer and meter providers when an
// observability endpoint is configured.
func (a *App[C]) initTelemetry(ctx context.Context) error {
	base := a.Cfg.GetServiceConfig()
	obs := base.Observability
	if !obs.Enabled() {
		return nil
	}

	tp, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    base.Name,
		ServiceVersion: base.Version,
		Environment:    base.Environment,
		Endpoint:       obs.Endpoint,
		Insecure:       obs.Insecure,
		SampleRate:     obs.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	a.shutdowns = append(a.shutdowns, tp.Shutdown)

	mp, err := observability.InitMeter(ctx, &observability.MeterConfig{
		ServiceName:    base.Name,
		ServiceVersion: base.Version,
		Environment:    base.Environment,
		Endpoint:       obs.Endpoint,
		Insecure:       obs.Insecure,
		Interval:       obs.MetricPeriod,
	})
	if err != nil {
		return multierr.Append(fmt.Errorf("meter: %w", err), tp.Shutdown(ctx))
	}
	a.shutdowns = append(a.shutdowns, mp.Shutdown)
	return nil
}
