package registry

// Type kinds.
const (
	KindClass     = "class"
	KindInterface = "interface"
	KindTrait     = "trait"
	KindEnum      = "enum"
)

// Declaration is one type declared by a unit, with every reference already
// resolved to a fully qualified type id.
//
// Methods are the methods the type provides, except for interfaces, where
// they are the methods an implementer is required to provide.
type Declaration struct {
	Name               string   `json:"name" yaml:"name" toml:"name" validate:"required" jsonschema:"description=Fully qualified type id"`
	Kind               string   `json:"kind" yaml:"kind" toml:"kind" validate:"required,oneof=class interface trait enum" jsonschema:"enum=class,enum=interface,enum=trait,enum=enum"`
	Abstract           bool     `json:"abstract,omitempty" yaml:"abstract" toml:"abstract"`
	Extends            []string `json:"extends,omitempty" yaml:"extends" toml:"extends" validate:"dive,required"`
	Implements         []string `json:"implements,omitempty" yaml:"implements" toml:"implements" validate:"dive,required"`
	Uses               []string `json:"uses,omitempty" yaml:"uses" toml:"uses" validate:"dive,required"`
	Methods            []string `json:"methods,omitempty" yaml:"methods" toml:"methods" validate:"dive,required"`
	PrivateConstructor bool     `json:"private_constructor,omitempty" yaml:"private_constructor" toml:"private_constructor"`
}

// Instantiable reports whether the declared type can be constructed directly.
func (d *Declaration) Instantiable() bool {
	return d.Kind == KindClass && !d.Abstract && !d.PrivateConstructor
}

// Unit is one loaded source unit and the declarations it contributes.
type Unit struct {
	Path     string
	Language string
	Hash     string
	Decls    []Declaration
}
