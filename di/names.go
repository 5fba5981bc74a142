package di

// BaseKeys names the services the bootstrap layer registers in every
// container. Applications embed it in their own key sets.
type BaseKeys struct {
	Config    Key
	Logger    Key
	Inspector Key
}

// Base contains the keys registered by the bootstrap layer.
var Base = BaseKeys{
	Config:    Name("config"),
	Logger:    Name("logger"),
	Inspector: Name("inspector"),
}
