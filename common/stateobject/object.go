// Package stateobject implements snapshot and restore of record types
// through declarative per-type field tables. Records expose their fields
// once via StateFields, the package handles recursive serialization,
// validated restore and structural comparison of the resulting state
// mappings.
package stateobject

// Mode selects how much of a record is serialized.
type Mode uint8

const (
	// ModeShort is for display: expensive fields may be omitted and the
	// result need not round-trip.
	ModeShort Mode = iota
	// ModeFull is complete and exactly round-trippable.
	ModeFull
)

type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	// KindObject marks a nested state object serialized through its own
	// field table.
	KindObject
)

// Object is a record participating in the state schema.
type Object interface {
	StateFields() []Field
}

// Field describes one attribute of a record.
//
// Scalar fields set Get and Set. Object fields set Object and SetObject;
// New, when present, constructs a placeholder instance for restoring a
// nested object that is currently absent.
type Field struct {
	Name      string
	Kind      Kind
	ShortOmit bool

	Get func() any
	Set func(value any)

	Object    func() Object
	SetObject func(object Object)
	New       func() Object
}
