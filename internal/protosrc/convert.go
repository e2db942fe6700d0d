// Package protosrc adapts protobuf messages to the schema package: it
// converts descriptors into schema types, reads field values through
// protoreflect, loads descriptor sets produced by protoc and decodes record
// streams.
package protosrc

import (
	"sync"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/wes-public-apps/protobuf-db/internal/schema"
)

var scalarKinds = map[protoreflect.Kind]schema.ScalarType{
	protoreflect.DoubleKind:   schema.Double,
	protoreflect.FloatKind:    schema.Float,
	protoreflect.Int64Kind:    schema.Int64,
	protoreflect.Uint64Kind:   schema.Uint64,
	protoreflect.Int32Kind:    schema.Int32,
	protoreflect.Fixed64Kind:  schema.Fixed64,
	protoreflect.Fixed32Kind:  schema.Fixed32,
	protoreflect.BoolKind:     schema.Bool,
	protoreflect.StringKind:   schema.String,
	protoreflect.BytesKind:    schema.Bytes,
	protoreflect.Uint32Kind:   schema.Uint32,
	protoreflect.Sfixed32Kind: schema.Sfixed32,
	protoreflect.Sfixed64Kind: schema.Sfixed64,
	protoreflect.Sint32Kind:   schema.Sint32,
	protoreflect.Sint64Kind:   schema.Sint64,
}

// Converter turns descriptors into schema types. Results are memoized by
// full name, so recursive messages become pointer cycles and every caller
// sees the same *schema.Message for a given type. Safe for concurrent use.
type Converter struct {
	mu    sync.Mutex
	msgs  map[protoreflect.FullName]*schema.Message
	enums map[protoreflect.FullName]*schema.Enum
}

func NewConverter() *Converter {
	return &Converter{
		msgs:  map[protoreflect.FullName]*schema.Message{},
		enums: map[protoreflect.FullName]*schema.Enum{},
	}
}

// Message converts md.
func (c *Converter) Message(md protoreflect.MessageDescriptor) *schema.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message(md)
}

// Enum converts ed.
func (c *Converter) Enum(ed protoreflect.EnumDescriptor) *schema.Enum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enum(ed)
}

func (c *Converter) message(md protoreflect.MessageDescriptor) *schema.Message {
	if m, ok := c.msgs[md.FullName()]; ok {
		return m
	}
	m := &schema.Message{FullName: string(md.FullName())}
	c.msgs[md.FullName()] = m

	fields := md.Fields()
	m.Fields = make([]*schema.Field, 0, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		m.Fields = append(m.Fields, c.field(fields.Get(i)))
	}

	// Map entries are implementation details of map fields.
	nested := md.Messages()
	for i := 0; i < nested.Len(); i++ {
		if nm := nested.Get(i); !nm.IsMapEntry() {
			m.NestedMessages = append(m.NestedMessages, c.message(nm))
		}
	}
	enums := md.Enums()
	for i := 0; i < enums.Len(); i++ {
		m.NestedEnums = append(m.NestedEnums, c.enum(enums.Get(i)))
	}
	return m
}

func (c *Converter) enum(ed protoreflect.EnumDescriptor) *schema.Enum {
	if e, ok := c.enums[ed.FullName()]; ok {
		return e
	}
	e := &schema.Enum{FullName: string(ed.FullName())}
	vals := ed.Values()
	for i := 0; i < vals.Len(); i++ {
		v := vals.Get(i)
		e.Values = append(e.Values, schema.EnumValue{Name: string(v.Name()), Number: int32(v.Number())})
	}
	c.enums[ed.FullName()] = e
	return e
}

func (c *Converter) field(fd protoreflect.FieldDescriptor) *schema.Field {
	f := &schema.Field{
		Name:        string(fd.Name()),
		Tag:         int32(fd.Number()),
		Cardinality: schema.Singular,
	}
	vd := fd
	switch {
	case fd.IsMap():
		f.Cardinality = schema.Map
		f.MapKey = scalarKinds[fd.MapKey().Kind()]
		vd = fd.MapValue()
	case fd.IsList():
		f.Cardinality = schema.List
	}

	switch vd.Kind() {
	case protoreflect.MessageKind:
		f.Kind = schema.KindMessage
		f.Message = c.message(vd.Message())
	case protoreflect.EnumKind:
		f.Kind = schema.KindEnum
		f.Enum = c.enum(vd.Enum())
	case protoreflect.GroupKind:
		// Left with a zero Kind: groups are reported and skipped.
	default:
		f.Kind = schema.KindScalar
		f.Scalar = scalarKinds[vd.Kind()]
	}
	return f
}
