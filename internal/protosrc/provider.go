package protosrc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/wes-public-apps/protobuf-db/internal/schema"
)

// Provider implements schema.Provider for proto.Message records, generated
// or dynamic.
type Provider struct {
	conv *Converter
}

var _ schema.Provider = (*Provider)(nil)

// NewProvider returns a provider converting through c; nil gets a fresh
// Converter.
func NewProvider(c *Converter) *Provider {
	if c == nil {
		c = NewConverter()
	}
	return &Provider{conv: c}
}

// Converter exposes the converter backing p.
func (p *Provider) Converter() *Converter { return p.conv }

func asMessage(rec any) (protoreflect.Message, error) {
	switch m := rec.(type) {
	case proto.Message:
		if m == nil {
			return nil, &schema.ShapeError{Kind: "<nil>", Reason: "nil message"}
		}
		return m.ProtoReflect(), nil
	case protoreflect.Message:
		return m, nil
	default:
		return nil, &schema.ShapeError{Kind: fmt.Sprintf("%T", rec), Reason: "record is not a protobuf message"}
	}
}

// Describe implements schema.Provider.
func (p *Provider) Describe(rec any) (*schema.Message, error) {
	m, err := asMessage(rec)
	if err != nil {
		return nil, err
	}
	return p.conv.Message(m.Descriptor()), nil
}

// Value implements schema.Provider. Unset singular messages read as nil;
// unset scalars read as their (possibly custom) default.
func (p *Provider) Value(rec any, f *schema.Field) (any, error) {
	m, err := asMessage(rec)
	if err != nil {
		return nil, err
	}
	md := m.Descriptor()
	fd := md.Fields().ByName(protoreflect.Name(f.Name))
	if fd == nil || int32(fd.Number()) != f.Tag {
		return nil, &schema.ShapeError{Kind: string(md.FullName()), Field: f.Name, Reason: "no such field on the message"}
	}

	switch {
	case fd.IsMap():
		mp := m.Get(fd).Map()
		vd := fd.MapValue()
		entries := make([]schema.MapEntry, 0, mp.Len())
		mp.Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
			entries = append(entries, schema.MapEntry{Key: k.Interface(), Value: goValue(vd, v)})
			return true
		})
		return entries, nil
	case fd.IsList():
		l := m.Get(fd).List()
		out := make([]any, l.Len())
		for i := range out {
			out[i] = goValue(fd, l.Get(i))
		}
		return out, nil
	case fd.Message() != nil:
		if !m.Has(fd) {
			return nil, nil
		}
		return m.Get(fd).Message().Interface(), nil
	default:
		return goValue(fd, m.Get(fd)), nil
	}
}

func goValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.EnumKind:
		return schema.EnumNumber(v.Enum())
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return v.Message().Interface()
	case protoreflect.BytesKind:
		return v.Bytes()
	default:
		return v.Interface()
	}
}
