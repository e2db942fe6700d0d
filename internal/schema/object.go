package schema

import "fmt"

// Object is an in-memory record. Values is keyed by field name:
//
//	singular scalar    Go scalar or []byte
//	singular enum      EnumNumber (or any integer)
//	singular message   *Object, nil when unset
//	list               []any
//	map                map[string]any or []MapEntry
//
// Missing keys read as unset.
type Object struct {
	Type   *Message
	Values map[string]any
}

// NewObject returns an empty record of type m.
func NewObject(m *Message) *Object {
	return &Object{Type: m, Values: map[string]any{}}
}

// Set stores v under name and returns o for chaining.
func (o *Object) Set(name string, v any) *Object {
	if o.Values == nil {
		o.Values = map[string]any{}
	}
	o.Values[name] = v
	return o
}

// StaticProvider implements Provider over *Object records.
type StaticProvider struct{}

var _ Provider = StaticProvider{}

// Describe implements Provider. Every key in Values must name a field of the
// declared type.
func (StaticProvider) Describe(rec any) (*Message, error) {
	o, err := asObject(rec)
	if err != nil {
		return nil, err
	}
	for name := range o.Values {
		if o.Type.FieldByName(name) == nil {
			return nil, &ShapeError{Kind: o.Type.FullName, Field: name, Reason: "value for a field the schema does not declare"}
		}
	}
	return o.Type, nil
}

// Value implements Provider.
func (StaticProvider) Value(rec any, f *Field) (any, error) {
	o, err := asObject(rec)
	if err != nil {
		return nil, err
	}
	if o.Type.FieldByName(f.Name) != f {
		return nil, &ShapeError{Kind: o.Type.FullName, Field: f.Name, Reason: "field is not part of the record's schema"}
	}
	v, ok := o.Values[f.Name]
	if !ok || v == nil {
		return nil, nil
	}

	switch f.Cardinality {
	case List:
		list, ok := v.([]any)
		if !ok {
			return nil, &ShapeError{Kind: o.Type.FullName, Field: f.Name, Reason: fmt.Sprintf("list field holds %T", v)}
		}
		return list, nil
	case Map:
		switch m := v.(type) {
		case []MapEntry:
			return m, nil
		case map[string]any:
			out := make([]MapEntry, 0, len(m))
			for k, vv := range m {
				out = append(out, MapEntry{Key: k, Value: vv})
			}
			return out, nil
		default:
			return nil, &ShapeError{Kind: o.Type.FullName, Field: f.Name, Reason: fmt.Sprintf("map field holds %T", v)}
		}
	}

	if f.Kind == KindMessage {
		if nested, ok := v.(*Object); ok && nested == nil {
			return nil, nil
		}
	}
	return v, nil
}

func asObject(rec any) (*Object, error) {
	o, ok := rec.(*Object)
	if !ok || o == nil {
		return nil, &ShapeError{Kind: fmt.Sprintf("%T", rec), Reason: "record is not a *schema.Object"}
	}
	if o.Type == nil {
		return nil, &ShapeError{Kind: "<nil>", Reason: "record has no type"}
	}
	return o, nil
}
