package di

import (
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/kbukum/svckit/errors"
	"github.com/kbukum/svckit/logger"
	"github.com/kbukum/svckit/observability"
	"github.com/kbukum/svckit/resource"
)

// Builder collects registrations and produces a Container. Registration
// methods return the builder for chaining; problems are recorded and
// reported by Build. A key registered twice keeps the last registration.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	registrations map[Key]Descriptor
	order         []Key
	metadata      MetadataSource
	log           *logger.Logger
	instruments   *observability.Instruments
	errs          error
	consumed      bool
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		registrations: make(map[Key]Descriptor),
		metadata:      ReflectMetadata{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.WithComponent("di")
	}
	if b.instruments == nil {
		b.instruments = observability.DefaultInstruments()
	}
	return b
}

// Register adds d under key, replacing any earlier registration of key.
func (b *Builder) Register(key Key, d Descriptor) *Builder {
	if b.consumed {
		b.fail(errors.BuilderConsumed())
		return b
	}
	if err := d.validate(); err != nil {
		b.fail(errors.InvalidRegistration(key.String(), err.Error()).WithCause(err))
		return b
	}
	if key.IsZero() {
		b.fail(errors.InvalidRegistration(key.String(), "empty key"))
		return b
	}
	if _, exists := b.registrations[key]; exists {
		b.log.Debug("Registration replaced", logger.Fields(logger.FieldKey, key.String(), logger.FieldKind, d.kind.String()))
	} else {
		b.order = append(b.order, key)
	}
	b.registrations[key] = d
	return b
}

// Instance registers a pre-built value under key.
func (b *Builder) Instance(value any, key Key, opts ...Option) *Builder {
	r := applyOptions(opts)
	return b.Register(key, InstanceOf(value).WithProperties(r.props...))
}

// Class registers a type built without arguments, under its produced type
// unless As is given. See ClassOf for the accepted targets.
func (b *Builder) Class(target any, opts ...Option) *Builder {
	r := applyOptions(opts)
	d := ClassOf(target)
	return b.Register(b.keyFor(r, d), d.WithProperties(r.props...))
}

// ConstructorInject registers a constructor whose parameters are resolved
// from the container. Dependencies come from DependsOn or, failing that, the
// metadata source. A constructor without parameters needs neither.
func (b *Builder) ConstructorInject(ctor any, opts ...Option) *Builder {
	r := applyOptions(opts)
	d := ConstructorOf(ctor)
	key := b.keyFor(r, d)
	if d.invalid == nil {
		switch ft := d.ctor.Type(); {
		case r.hasDeps:
			d = d.withDeps(r.deps)
		case ft.NumIn() == 0:
		default:
			deps, ok := b.metadata.ParamKeys(ft)
			if !ok {
				b.fail(errors.MissingMetadata(key.String(), "constructor dependencies"))
				return b
			}
			d = d.withDeps(deps)
		}
	}
	return b.Register(key, d.WithProperties(r.props...))
}

// PropertyInject registers a type built without arguments whose exported
// fields are then filled from the container. Injections come from Inject or,
// failing that, the metadata source.
func (b *Builder) PropertyInject(target any, opts ...Option) *Builder {
	r := applyOptions(opts)
	d := ClassOf(target)
	key := b.keyFor(r, d)
	props := r.props
	if len(props) == 0 && d.invalid == nil {
		var ok bool
		props, ok = b.metadata.PropertyKeys(d.produces)
		if !ok {
			b.fail(errors.MissingMetadata(key.String(), "property injections"))
			return b
		}
	}
	return b.Register(key, d.WithProperties(props...))
}

// Factory registers fn under key.
func (b *Builder) Factory(key Key, fn FactoryFunc, opts ...Option) *Builder {
	r := applyOptions(opts)
	return b.Register(key, FactoryOf(fn).WithProperties(r.props...))
}

// Use installs modules in order.
func (b *Builder) Use(modules ...Module) *Builder {
	for _, m := range modules {
		if m != nil {
			m.Install(b)
		}
	}
	return b
}

// Has reports whether key has been registered so far.
func (b *Builder) Has(key Key) bool {
	_, ok := b.registrations[key]
	return ok
}

// Build freezes the registrations into a new container with an empty cache.
// It fails with every problem recorded during registration. The builder
// cannot be used afterwards.
func (b *Builder) Build() (*Container, error) {
	if b.consumed {
		return nil, errors.BuilderConsumed()
	}
	b.consumed = true
	if b.errs != nil {
		b.log.Error("Container build failed", logger.ErrorFields("build", b.errs))
		return nil, b.errs
	}

	id := uuid.New().String()
	c := &Container{
		id:            id,
		registrations: b.registrations,
		order:         b.order,
		log:           b.log.WithFields(logger.Fields(logger.FieldContainerID, id)),
		instruments:   b.instruments,
		cache:         make(map[Key]*entry),
		inits:         make(map[Key]*resource.Future[any]),
	}
	b.registrations = nil
	b.order = nil

	c.log.Info("Container built", logger.Fields(logger.FieldCount, len(c.order)))
	return c, nil
}

func (b *Builder) keyFor(r registration, d Descriptor) Key {
	if !r.key.IsZero() {
		return r.key
	}
	if d.produces != nil {
		return KeyOf(d.produces)
	}
	return Key{}
}

func (b *Builder) fail(err error) {
	b.errs = multierr.Append(b.errs, err)
}

// TypeOf is shorthand for reflect.TypeFor, for use with Class and
// PropertyInject: b.Class(di.TypeOf[*Cache]()).
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
