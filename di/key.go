package di

import "reflect"

// Key identifies a registration. It holds either a type or a name, never
// both, and is comparable so it can index maps.
type Key struct {
	typ  reflect.Type
	name string
}

// TypeKey returns the key for type T.
func TypeKey[T any]() Key {
	return Key{typ: reflect.TypeFor[T]()}
}

// KeyOf returns the key for t.
func KeyOf(t reflect.Type) Key {
	return Key{typ: t}
}

// Name returns the key for a string name.
func Name(name string) Key {
	return Key{name: name}
}

// IsZero reports whether k identifies nothing.
func (k Key) IsZero() bool {
	return k.typ == nil && k.name == ""
}

// Type returns the type of a type key, or nil for a name key.
func (k Key) Type() reflect.Type {
	return k.typ
}

// Name returns the name of a name key, or "" for a type key.
func (k Key) Name() string {
	return k.name
}

func (k Key) String() string {
	switch {
	case k.typ != nil:
		return "type:" + k.typ.String()
	case k.name != "":
		return "name:" + k.name
	default:
		return "<none>"
	}
}
