// Package di provides the dependency injection runtime for svckit
// applications: a Builder that collects service registrations and a
// Container that resolves them into singleton object graphs.
//
// Services are identified by a Key, either a Go type or a string name. A
// type key and a name key never match each other, and every key owns
// exactly one instance for the lifetime of its container.
//
// # Registration
//
//	b := di.NewBuilder()
//	b.Instance(&Config{Value: 1}, di.Name("Config"))
//	b.Class(reflect.TypeFor[*Cache]())
//	b.ConstructorInject(NewRepository)                     // params discovered from the signature
//	b.ConstructorInject(NewService, di.DependsOn(di.Name("Config"), di.TypeKey[*Repository]()))
//	b.PropertyInject(reflect.TypeFor[*Handler]())          // fields tagged `inject:"..."`
//	b.Factory(di.Name("Today"), func(r di.Resolver) (any, error) { ... })
//	container, err := b.Build()
//
// # Resolution
//
//	svc, err := di.Resolve[*Service](container, di.TypeKey[*Service]())
//	db, err := di.ResolveInitialized[*DB](ctx, container, di.Name("db"))
//
// # Teardown
//
//	err := container.Dispose(ctx)
//
// Dispose releases every resolved instance that implements
// resource.Disposable, io.Closer or resource.AsyncDisposable, in reverse
// resolution order, and reports all failures together.
package di
