package store

import "time"

// Unit is one successfully loaded source unit.
type Unit struct {
	ID       int64
	Path     string
	Language string
	Hash     string
	LoadedAt time.Time
}

// Type is a registered type row. UnitPath and Language come from the
// defining unit and are empty for builtin types.
type Type struct {
	ID           int64
	UnitID       *int64
	Name         string
	Kind         string
	Abstract     bool
	Instantiable bool
	Parent       string
	UnitPath     string
	Language     string
}

type Capability struct {
	TypeID int64
	Name   string
	Direct bool
}

type Ancestor struct {
	TypeID int64
	Name   string
	Depth  int
}

// Method kinds stored in type_methods.
const (
	MethodProvided = "provided"
	MethodRequired = "required"
)

// TypeRecord is everything committed for one type: the row plus its
// precomputed capability closure, ancestor chain and flattened method sets.
type TypeRecord struct {
	Type         Type
	Capabilities []Capability
	Ancestors    []Ancestor
	Provided     []string
	Required     []string
}
