// Package schema defines the framework-neutral description of a record kind
// (Message, Field, Enum) and the Provider contract used to read values out of
// opaque record instances.
//
// Message and Enum values are immutable once built and are shared by pointer.
// A Message may reference itself or another Message that references it back;
// such graphs are plain pointer cycles and callers that walk them must track
// what they have visited.
package schema

import (
	"sort"
	"strings"
)

// Kind is the value category of a field.
type Kind int

const (
	KindScalar Kind = iota + 1
	KindEnum
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindEnum:
		return "enum"
	case KindMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Cardinality says how many values a field holds.
type Cardinality int

const (
	Singular Cardinality = iota + 1
	// List is a repeated field iterated in source order.
	List
	// Map is a repeated key/value field. Its value kind is Field.Kind.
	Map
)

func (c Cardinality) String() string {
	switch c {
	case Singular:
		return "singular"
	case List:
		return "list"
	case Map:
		return "map"
	default:
		return "unknown"
	}
}

// Field describes one field of a Message.
//
// For Kind == KindScalar, Scalar names the wire type. For KindEnum and
// KindMessage the referenced Enum or Message is set. Map fields additionally
// carry the scalar type of their key in MapKey.
type Field struct {
	Name        string
	Tag         int32
	Kind        Kind
	Cardinality Cardinality
	Scalar      ScalarType
	MapKey      ScalarType
	Message     *Message
	Enum        *Enum
}

// IsMap reports whether the field is a key/value field.
func (f *Field) IsMap() bool { return f.Cardinality == Map }

// IsRepeated reports whether the field holds more than one value.
func (f *Field) IsRepeated() bool { return f.Cardinality == List || f.Cardinality == Map }

// Message describes a record kind.
type Message struct {
	// FullName is the dotted qualified name, e.g. "common.RawMsg". It is the
	// kind identifier used to route mixed streams.
	FullName string

	// Fields are listed in declaration order.
	Fields []*Field

	// NestedMessages and NestedEnums are types declared inside this message.
	// Synthetic map-entry types are not listed.
	NestedMessages []*Message
	NestedEnums    []*Enum
}

// Name returns the last segment of FullName.
func (m *Message) Name() string { return lastSegment(m.FullName) }

// SortedFields returns the fields ordered by ascending tag. Path and column
// stability depends on this order, never on declaration order.
func (m *Message) SortedFields() []*Field {
	out := make([]*Field, len(m.Fields))
	copy(out, m.Fields)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// FieldByName returns the named field or nil.
func (m *Message) FieldByName(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Enum describes an enumeration type.
type Enum struct {
	FullName string
	Values   []EnumValue
}

// Name returns the last segment of FullName.
func (e *Enum) Name() string { return lastSegment(e.FullName) }

// EnumValue is one named constant of an Enum, in declaration order.
type EnumValue struct {
	Name   string
	Number int32
}

// EnumNumber is the value type of enum fields. Flattening emits the ordinal,
// not the constant name.
type EnumNumber int32

func lastSegment(full string) string {
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		return full[i+1:]
	}
	return full
}
