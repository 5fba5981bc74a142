package di

import (
	"reflect"
	"testing"

	"github.com/kbukum/svckit/errors"
)

func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{TypeKey[*Config](), "type:*di.Config"},
		{Name("Config"), "name:Config"},
		{Key{}, "<none>"},
	}
	for _, tc := range tests {
		if got := tc.key.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestTypeKeyAndNameKeyDiffer(t *testing.T) {
	if TypeKey[*Config]() == Name("*di.Config") {
		t.Error("expected a type key never to equal a name key")
	}
	if TypeKey[*Config]() != KeyOf(reflect.TypeFor[*Config]()) {
		t.Error("expected TypeKey and KeyOf to agree")
	}
}

func TestBuilderLastRegistrationWins(t *testing.T) {
	b := newTestBuilder()
	b.Instance(&Config{Value: 1}, Name("Config"))
	b.Instance(&Config{Value: 2}, Name("Config"))
	c := mustBuild(t, b)

	cfg, err := Resolve[*Config](c, Name("Config"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Value != 2 {
		t.Errorf("expected the last registration (2), got %d", cfg.Value)
	}
	if n := len(c.Registrations()); n != 1 {
		t.Errorf("expected 1 registration after overwrite, got %d", n)
	}
}

func TestBuilderConsumed(t *testing.T) {
	b := newTestBuilder()
	b.Instance(1, Name("one"))
	mustBuild(t, b)

	if _, err := b.Build(); !errors.Is(err, ErrBuilderConsumed) {
		t.Errorf("expected ErrBuilderConsumed on second Build, got %v", err)
	}
}

func TestBuildMissingConstructorMetadata(t *testing.T) {
	b := newTestBuilder(WithMetadata(NoMetadata{}))
	b.ConstructorInject(NewRepo)

	_, err := b.Build()
	if !errors.Is(err, ErrMissingDependencyMetadata) {
		t.Fatalf("expected ErrMissingDependencyMetadata, got %v", err)
	}
}

func TestBuildMissingPropertyMetadata(t *testing.T) {
	b := newTestBuilder(WithMetadata(NoMetadata{}))
	b.PropertyInject(TypeOf[*Handler]())

	if _, err := b.Build(); !errors.Is(err, ErrMissingDependencyMetadata) {
		t.Fatalf("expected ErrMissingDependencyMetadata, got %v", err)
	}
}

func TestConstructorWithoutParamsNeedsNoMetadata(t *testing.T) {
	b := newTestBuilder(WithMetadata(NoMetadata{}))
	b.ConstructorInject(func() *Config { return &Config{Value: 7} })
	c := mustBuild(t, b)

	cfg, err := ResolveType[*Config](c)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Value != 7 {
		t.Errorf("expected 7, got %d", cfg.Value)
	}
}

func TestBuildInvalidRegistrations(t *testing.T) {
	tests := []struct {
		name     string
		register func(b *Builder)
	}{
		{"arity mismatch", func(b *Builder) {
			b.ConstructorInject(NewService, DependsOn(TypeKey[*Repo]()))
		}},
		{"not a function", func(b *Builder) {
			b.ConstructorInject(42)
		}},
		{"bad return signature", func(b *Builder) {
			b.ConstructorInject(func() (int, int) { return 1, 2 })
		}},
		{"variadic constructor", func(b *Builder) {
			b.ConstructorInject(func(xs ...int) int { return len(xs) }, DependsOn())
		}},
		{"class type not a pointer", func(b *Builder) {
			b.Class(reflect.TypeFor[Config]())
		}},
		{"class with parameters", func(b *Builder) {
			b.Class(NewRepo)
		}},
		{"nil factory", func(b *Builder) {
			b.Factory(Name("f"), nil)
		}},
		{"empty key", func(b *Builder) {
			b.Instance(1, Key{})
		}},
		{"unknown field", func(b *Builder) {
			b.Class(TypeOf[*Handler](), Inject("Missing", Name("Config")))
		}},
		{"unexported field", func(b *Builder) {
			b.Class(TypeOf[*Handler](), Inject("plain", Name("Config")))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBuilder()
			tc.register(b)
			if _, err := b.Build(); !errors.Is(err, ErrInvalidRegistration) {
				t.Errorf("expected ErrInvalidRegistration, got %v", err)
			}
		})
	}
}

func TestBuildReportsEveryProblem(t *testing.T) {
	b := newTestBuilder(WithMetadata(NoMetadata{}))
	b.ConstructorInject(NewRepo)
	b.ConstructorInject(42, As(Name("bad")))

	_, err := b.Build()
	if !errors.Is(err, ErrMissingDependencyMetadata) {
		t.Errorf("expected ErrMissingDependencyMetadata in %v", err)
	}
	if !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("expected ErrInvalidRegistration in %v", err)
	}
}

func TestUseInstallsModules(t *testing.T) {
	configModule := ModuleFunc(func(b *Builder) {
		b.Instance(&Config{Value: 3}, TypeKey[*Config]())
	})
	repoModule := ModuleFunc(func(b *Builder) {
		b.ConstructorInject(NewRepo)
	})

	b := newTestBuilder().Use(configModule, repoModule)
	if !b.Has(TypeKey[*Repo]()) {
		t.Fatal("expected module registration to be visible on the builder")
	}
	c := mustBuild(t, b)

	repo, err := ResolveType[*Repo](c)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if repo.Cfg.Value != 3 {
		t.Errorf("expected config from module, got %d", repo.Cfg.Value)
	}
}

func TestReflectMetadataParamKeys(t *testing.T) {
	keys, ok := ReflectMetadata{}.ParamKeys(reflect.TypeOf(NewService))
	if !ok {
		t.Fatal("expected metadata for a function type")
	}
	want := []Key{TypeKey[*Repo](), TypeKey[*Config]()}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("ParamKeys = %v, want %v", keys, want)
	}
	if _, ok := (ReflectMetadata{}).ParamKeys(reflect.TypeFor[int]()); ok {
		t.Error("expected no metadata for a non-function type")
	}
}

func TestReflectMetadataPropertyKeys(t *testing.T) {
	specs, ok := ReflectMetadata{}.PropertyKeys(TypeOf[*Handler]())
	if !ok {
		t.Fatal("expected metadata for tagged struct")
	}
	want := []PropertySpec{
		{Field: "Svc", Key: TypeKey[*Service]()},
		{Field: "Cfg", Key: Name("Config")},
	}
	if !reflect.DeepEqual(specs, want) {
		t.Errorf("PropertyKeys = %v, want %v", specs, want)
	}
	if _, ok := (ReflectMetadata{}).PropertyKeys(TypeOf[*Config]()); ok {
		t.Error("expected no metadata for a struct without inject tags")
	}
}

func TestStaticMetadata(t *testing.T) {
	md := NewStaticMetadata().
		SetParamKeys(TypeOf[*Repo](), Name("Config")).
		AddProperty(TypeOf[*Handler](), "Cfg", Name("Config"))

	b := newTestBuilder(WithMetadata(md))
	b.Instance(&Config{Value: 5}, Name("Config"))
	b.ConstructorInject(NewRepo)
	b.PropertyInject(TypeOf[*Handler]())
	c := mustBuild(t, b)

	repo, err := ResolveType[*Repo](c)
	if err != nil {
		t.Fatalf("Resolve repo failed: %v", err)
	}
	if repo.Cfg.Value != 5 {
		t.Errorf("expected static dependency to be injected, got %d", repo.Cfg.Value)
	}
	h, err := ResolveType[*Handler](c)
	if err != nil {
		t.Fatalf("Resolve handler failed: %v", err)
	}
	if h.Cfg != repo.Cfg {
		t.Error("expected static property to receive the shared config")
	}
	if h.Svc != nil {
		t.Error("expected only the statically declared property to be injected")
	}
}

func TestDescriptorIntrospection(t *testing.T) {
	d := ConstructorOf(NewService, TypeKey[*Repo](), Name("Config")).
		WithProperties(PropertySpec{Field: "Cfg", Key: Name("Config")})
	if d.Kind() != KindConstructor {
		t.Errorf("expected constructor kind, got %s", d.Kind())
	}
	if len(d.Dependencies()) != 2 || len(d.Properties()) != 1 {
		t.Errorf("unexpected descriptor contents: %v %v", d.Dependencies(), d.Properties())
	}
	if d.Produces() != TypeOf[*Service]() {
		t.Errorf("expected produced type *Service, got %v", d.Produces())
	}
	if FactoryOf(func(Resolver) (any, error) { return nil, nil }).Produces() != nil {
		t.Error("expected factories to have no static type")
	}
}
