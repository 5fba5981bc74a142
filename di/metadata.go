package di

import (
	"reflect"
	"sync"
)

// MetadataSource supplies dependency keys for registrations that do not
// declare them explicitly. Both methods report false when they know nothing
// about the type, which makes Build fail with MISSING_DEPENDENCY_METADATA.
type MetadataSource interface {
	// ParamKeys returns one key per parameter of the constructor type ctor.
	ParamKeys(ctor reflect.Type) ([]Key, bool)
	// PropertyKeys returns the properties to inject into instances of target.
	PropertyKeys(target reflect.Type) ([]PropertySpec, bool)
}

// NoMetadata never knows anything; every injection must be explicit.
type NoMetadata struct{}

func (NoMetadata) ParamKeys(reflect.Type) ([]Key, bool)             { return nil, false }
func (NoMetadata) PropertyKeys(reflect.Type) ([]PropertySpec, bool) { return nil, false }

// DefaultInjectTag is the struct tag ReflectMetadata reads when TagName is empty.
const DefaultInjectTag = "inject"

// ReflectMetadata derives keys from Go type information. Each constructor
// parameter becomes the type key of its parameter type. Struct fields tagged
// `inject:""` become the type key of the field type, and `inject:"Name"`
// becomes the name key "Name".
type ReflectMetadata struct {
	TagName string
}

func (m ReflectMetadata) ParamKeys(ctor reflect.Type) ([]Key, bool) {
	if ctor == nil || ctor.Kind() != reflect.Func {
		return nil, false
	}
	keys := make([]Key, ctor.NumIn())
	for i := range keys {
		keys[i] = KeyOf(ctor.In(i))
	}
	return keys, true
}

func (m ReflectMetadata) PropertyKeys(target reflect.Type) ([]PropertySpec, bool) {
	st := structOf(target)
	if st == nil && target != nil && target.Kind() == reflect.Struct {
		st = target
	}
	if st == nil {
		return nil, false
	}
	tag := m.TagName
	if tag == "" {
		tag = DefaultInjectTag
	}
	var specs []PropertySpec
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup(tag)
		if !ok {
			continue
		}
		key := KeyOf(f.Type)
		if name != "" {
			key = Name(name)
		}
		specs = append(specs, PropertySpec{Field: f.Name, Key: key})
	}
	return specs, len(specs) > 0
}

// StaticMetadata is an explicit table of dependency keys, filled once at
// startup and handed to the builder. Parameter keys are recorded per
// produced type, so they apply to any constructor returning that type.
type StaticMetadata struct {
	mu     sync.RWMutex
	params map[reflect.Type][]Key
	props  map[reflect.Type][]PropertySpec
}

// NewStaticMetadata returns an empty table.
func NewStaticMetadata() *StaticMetadata {
	return &StaticMetadata{
		params: make(map[reflect.Type][]Key),
		props:  make(map[reflect.Type][]PropertySpec),
	}
}

// SetParamKeys records the constructor dependencies of produced.
func (m *StaticMetadata) SetParamKeys(produced reflect.Type, keys ...Key) *StaticMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params[produced] = append([]Key(nil), keys...)
	return m
}

// AddProperty appends a property injection for instances of target.
func (m *StaticMetadata) AddProperty(target reflect.Type, field string, key Key) *StaticMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props[target] = append(m.props[target], PropertySpec{Field: field, Key: key})
	return m
}

func (m *StaticMetadata) ParamKeys(ctor reflect.Type) ([]Key, bool) {
	if ctor == nil || ctor.Kind() != reflect.Func || ctor.NumOut() == 0 {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys, ok := m.params[ctor.Out(0)]
	return append([]Key(nil), keys...), ok
}

func (m *StaticMetadata) PropertyKeys(target reflect.Type) ([]PropertySpec, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	specs, ok := m.props[target]
	return append([]PropertySpec(nil), specs...), ok
}
