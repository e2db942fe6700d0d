package schema

// ScalarType enumerates the wire scalar types a field or map key can have.
type ScalarType int

const (
	Double ScalarType = iota + 1
	Float
	Int64
	Uint64
	Int32
	Fixed64
	Fixed32
	Bool
	String
	Bytes
	Uint32
	Sfixed32
	Sfixed64
	Sint32
	Sint64
)

var scalarNames = map[ScalarType]string{
	Double:   "double",
	Float:    "float",
	Int64:    "int64",
	Uint64:   "uint64",
	Int32:    "int32",
	Fixed64:  "fixed64",
	Fixed32:  "fixed32",
	Bool:     "bool",
	String:   "string",
	Bytes:    "bytes",
	Uint32:   "uint32",
	Sfixed32: "sfixed32",
	Sfixed64: "sfixed64",
	Sint32:   "sint32",
	Sint64:   "sint64",
}

func (t ScalarType) String() string {
	if s, ok := scalarNames[t]; ok {
		return s
	}
	return "unknown"
}

// Valid reports whether t is a known scalar type.
func (t ScalarType) Valid() bool {
	_, ok := scalarNames[t]
	return ok
}

// Zero returns the default value a field of this type reports when unset.
func (t ScalarType) Zero() any {
	switch t {
	case Double:
		return float64(0)
	case Float:
		return float32(0)
	case Int64, Sfixed64, Sint64:
		return int64(0)
	case Uint64, Fixed64:
		return uint64(0)
	case Int32, Sfixed32, Sint32:
		return int32(0)
	case Uint32, Fixed32:
		return uint32(0)
	case Bool:
		return false
	case String:
		return ""
	case Bytes:
		return []byte{}
	default:
		return nil
	}
}
