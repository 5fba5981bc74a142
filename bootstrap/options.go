package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/svckit/config"
	"github.com/kbukum/svckit/di"
	"github.com/kbukum/svckit/logger"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

// appOptions collects all option values before applying to App.
type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	modules         []di.Module
	builderOpts     []di.BuilderOption
	output          io.Writer
	loaderOpts      []config.LoaderOption
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is auto-initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout bounds shutdown. It defaults to the config's
// container.dispose_timeout.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithModules installs modules into the application's builder.
func WithModules(modules ...di.Module) Option {
	return func(o *appOptions) {
		o.modules = append(o.modules, modules...)
	}
}

// WithBuilderOptions passes options to di.NewBuilder, for example a
// metadata source.
func WithBuilderOptions(opts ...di.BuilderOption) Option {
	return func(o *appOptions) {
		o.builderOpts = append(o.builderOpts, opts...)
	}
}

// WithOutput sets where the startup summary is printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *appOptions) {
		o.output = w
	}
}

// WithConfigLoader passes options to config.LoadConfig when the app is
// created with LoadApp.
func WithConfigLoader(opts ...config.LoaderOption) Option {
	return func(o *appOptions) {
		o.loaderOpts = append(o.loaderOpts, opts...)
	}
}
