package schema

import (
	"errors"
	"fmt"
)

// Provider reads structure and values out of opaque records. Implementations
// adapt one serialization framework (protobuf reflection, in-memory objects)
// so that flattening and code generation never depend on it directly.
type Provider interface {
	// Describe returns the schema of rec.
	Describe(rec any) (*Message, error)

	// Value returns the value of field f on rec, which must be a record of a
	// kind whose schema contains f. The dynamic type of the result depends on
	// the field:
	//
	//	scalar, singular    Go scalar (int32, int64, uint32, uint64, float32,
	//	                    float64, bool, string) or []byte
	//	enum, singular      EnumNumber
	//	message, singular   nested record, or nil when unset
	//	list                []any of the above element values
	//	map                 []MapEntry in any order
	//
	// A nil result for a singular field means "unset"; callers substitute the
	// schema default.
	Value(rec any, f *Field) (any, error)
}

// MapEntry is one key/value pair of a map field.
type MapEntry struct {
	Key   any
	Value any
}

var (
	// ErrShapeMismatch reports a record whose fields disagree with its
	// declared schema.
	ErrShapeMismatch = errors.New("schema: record shape mismatch")

	// ErrUnsupportedKind reports a field whose kind or cardinality is not one
	// of the supported combinations.
	ErrUnsupportedKind = errors.New("schema: unsupported field kind")
)

// ShapeError describes a shape mismatch. It matches ErrShapeMismatch with
// errors.Is.
type ShapeError struct {
	Kind   string
	Field  string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: %s: shape mismatch: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("schema: %s.%s: shape mismatch: %s", e.Kind, e.Field, e.Reason)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShapeMismatch }

// Supported reports whether f has a kind/cardinality combination the
// flattener and generators understand.
func Supported(f *Field) error {
	switch f.Kind {
	case KindScalar:
		if !f.Scalar.Valid() {
			return fmt.Errorf("%w: field %s has scalar type %d", ErrUnsupportedKind, f.Name, f.Scalar)
		}
	case KindEnum:
		if f.Enum == nil {
			return fmt.Errorf("%w: enum field %s has no enum type", ErrUnsupportedKind, f.Name)
		}
	case KindMessage:
		if f.Message == nil {
			return fmt.Errorf("%w: message field %s has no message type", ErrUnsupportedKind, f.Name)
		}
	default:
		return fmt.Errorf("%w: field %s has kind %s", ErrUnsupportedKind, f.Name, f.Kind)
	}
	switch f.Cardinality {
	case Singular, List:
	case Map:
		if !f.MapKey.Valid() {
			return fmt.Errorf("%w: map field %s has key type %d", ErrUnsupportedKind, f.Name, f.MapKey)
		}
	default:
		return fmt.Errorf("%w: field %s has cardinality %s", ErrUnsupportedKind, f.Name, f.Cardinality)
	}
	return nil
}
