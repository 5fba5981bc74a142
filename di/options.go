package di

import (
	"github.com/kbukum/svckit/logger"
	"github.com/kbukum/svckit/observability"
)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithMetadata sets the source consulted for undeclared dependencies.
// The default is ReflectMetadata.
func WithMetadata(m MetadataSource) BuilderOption {
	return func(b *Builder) {
		if m == nil {
			m = NoMetadata{}
		}
		b.metadata = m
	}
}

// WithLogger sets the logger of the builder and of the containers it builds.
func WithLogger(l *logger.Logger) BuilderOption {
	return func(b *Builder) { b.log = l }
}

// WithInstruments sets the tracer and metrics the container records into.
func WithInstruments(i *observability.Instruments) BuilderOption {
	return func(b *Builder) { b.instruments = i }
}

// Option adjusts a single registration.
type Option func(*registration)

type registration struct {
	key     Key
	deps    []Key
	hasDeps bool
	props   []PropertySpec
}

// As registers under key instead of the produced type.
func As(key Key) Option {
	return func(r *registration) { r.key = key }
}

// DependsOn declares the constructor dependencies explicitly, one key per
// parameter in order. It overrides the metadata source.
func DependsOn(keys ...Key) Option {
	return func(r *registration) {
		r.deps = append(r.deps, keys...)
		r.hasDeps = true
	}
}

// Inject assigns the instance resolved for key to the named exported field
// after construction. Explicit injections override the metadata source.
func Inject(field string, key Key) Option {
	return func(r *registration) {
		r.props = append(r.props, PropertySpec{Field: field, Key: key})
	}
}

func applyOptions(opts []Option) registration {
	var r registration
	for _, opt := range opts {
		opt(&r)
	}
	return r
}
