package di

// Module groups related registrations so they can be installed together.
type Module interface {
	Install(b *Builder)
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(b *Builder)

// Install calls f(b).
func (f ModuleFunc) Install(b *Builder) { f(b) }
