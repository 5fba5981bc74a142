package di

import (
	"fmt"
	"reflect"
)

// Kind is the variant of a Descriptor.
type Kind int

const (
	KindInstance Kind = iota
	KindClass
	KindConstructor
	KindFactory
)

func (k Kind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindClass:
		return "class"
	case KindConstructor:
		return "constructor"
	case KindFactory:
		return "factory"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FactoryFunc builds an instance on demand. The Resolver it receives is bound
// to the resolution in progress, so dependencies it looks up take part in
// cycle detection.
type FactoryFunc func(r Resolver) (any, error)

// PropertySpec assigns the instance resolved for Key to the exported struct
// field Field after construction.
type PropertySpec struct {
	Field string
	Key   Key
}

// Descriptor tells the container how to produce the instance for a key. The
// zero value is invalid; use InstanceOf, ClassOf, ConstructorOf or FactoryOf.
type Descriptor struct {
	kind     Kind
	value    any
	ctor     reflect.Value
	alloc    reflect.Type
	produces reflect.Type
	deps     []Key
	factory  FactoryFunc
	props    []PropertySpec
	invalid  error
}

// InstanceOf describes a pre-built value that is returned as-is.
func InstanceOf(value any) Descriptor {
	d := Descriptor{kind: KindInstance, value: value}
	if value != nil {
		d.produces = reflect.TypeOf(value)
	}
	return d
}

// ClassOf describes a type built without arguments. target is either a
// function taking no parameters and returning T or (T, error), or the
// reflect.Type of a pointer, in which case a zero value is allocated.
func ClassOf(target any) Descriptor {
	if t, ok := target.(reflect.Type); ok {
		if t == nil || t.Kind() != reflect.Pointer {
			return Descriptor{kind: KindClass, invalid: fmt.Errorf("class type %v is not a pointer type", t)}
		}
		return Descriptor{kind: KindClass, alloc: t, produces: t}
	}
	d := ConstructorOf(target)
	d.kind = KindClass
	if d.invalid == nil && d.ctor.Type().NumIn() != 0 {
		d.invalid = fmt.Errorf("class constructor %s takes parameters; use constructor injection", d.ctor.Type())
	}
	return d
}

// ConstructorOf describes a constructor function whose parameters are filled
// positionally with the instances resolved for deps.
func ConstructorOf(ctor any, deps ...Key) Descriptor {
	d := Descriptor{kind: KindConstructor, deps: deps}
	fn := reflect.ValueOf(ctor)
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		d.invalid = fmt.Errorf("constructor must be a function, got %T", ctor)
		return d
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		d.invalid = fmt.Errorf("variadic constructor %s is not supported", ft)
		return d
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		d.invalid = fmt.Errorf("constructor %s must return (T) or (T, error)", ft)
		return d
	}
	d.ctor = fn
	d.produces = ft.Out(0)
	return d
}

// FactoryOf describes an instance produced by fn.
func FactoryOf(fn FactoryFunc) Descriptor {
	d := Descriptor{kind: KindFactory, factory: fn}
	if fn == nil {
		d.invalid = fmt.Errorf("factory is nil")
	}
	return d
}

// WithProperties returns a copy of d that also injects specs after
// construction.
func (d Descriptor) WithProperties(specs ...PropertySpec) Descriptor {
	props := make([]PropertySpec, 0, len(d.props)+len(specs))
	props = append(props, d.props...)
	d.props = append(props, specs...)
	return d
}

// withDeps returns a copy of d with its dependency list replaced.
func (d Descriptor) withDeps(deps []Key) Descriptor {
	d.deps = append([]Key(nil), deps...)
	return d
}

// Kind returns the descriptor variant.
func (d Descriptor) Kind() Kind { return d.kind }

// Dependencies returns the constructor dependency keys in parameter order.
func (d Descriptor) Dependencies() []Key { return append([]Key(nil), d.deps...) }

// Properties returns the property injections in application order.
func (d Descriptor) Properties() []PropertySpec { return append([]PropertySpec(nil), d.props...) }

// Produces returns the static type of the instance, or nil when it is only
// known after construction (factories).
func (d Descriptor) Produces() reflect.Type { return d.produces }

// validate checks what can be checked before anything is constructed.
func (d Descriptor) validate() error {
	if d.invalid != nil {
		return d.invalid
	}
	if d.kind == KindConstructor || (d.kind == KindClass && d.ctor.IsValid()) {
		if want := d.ctor.Type().NumIn(); want != len(d.deps) {
			return fmt.Errorf("constructor %s takes %d parameters but %d dependencies were given", d.ctor.Type(), want, len(d.deps))
		}
	}
	for _, dep := range d.deps {
		if dep.IsZero() {
			return fmt.Errorf("dependency key is empty")
		}
	}
	if len(d.props) == 0 {
		return nil
	}
	st := structOf(d.produces)
	for _, p := range d.props {
		if p.Key.IsZero() {
			return fmt.Errorf("property %q has an empty key", p.Field)
		}
		if st == nil {
			// Interface-typed or factory-built: checked when injected.
			continue
		}
		f, ok := st.FieldByName(p.Field)
		if !ok {
			return fmt.Errorf("%s has no field %q", d.produces, p.Field)
		}
		if !f.IsExported() {
			return fmt.Errorf("field %s.%s is not exported", st, p.Field)
		}
	}
	return nil
}

// structOf returns the struct type behind a pointer-to-struct type, or nil.
func structOf(t reflect.Type) reflect.Type {
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil
	}
	return t.Elem()
}

var errorType = reflect.TypeFor[error]()
