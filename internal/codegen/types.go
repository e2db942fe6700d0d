package codegen

import (
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wes-public-apps/protobuf-db/internal/schema"
	"github.com/wes-public-apps/protobuf-db/internal/typetree"
)

const (
	indentUnit = "    "
	preamble   = "from enum import Enum\nfrom typing import List\n\nimport strawberry\n"
)

var pythonScalars = map[schema.ScalarType]string{
	schema.Double:   "float",
	schema.Float:    "float",
	schema.Int64:    "int",
	schema.Uint64:   "int",
	schema.Int32:    "int",
	schema.Fixed64:  "int",
	schema.Fixed32:  "int",
	schema.Bool:     "bool",
	schema.String:   "str",
	schema.Bytes:    "bytes",
	schema.Uint32:   "int",
	schema.Sfixed32: "int",
	schema.Sfixed64: "int",
	schema.Sint32:   "int",
	schema.Sint64:   "int",
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// EntryName is the class synthesized for a map field: the field name in
// CamelCase followed by "Entry" (raw_msgs_by_id → RawMsgsByIdEntry).
func EntryName(field string) string {
	var sb strings.Builder
	for _, seg := range strings.Split(field, "_") {
		sb.WriteString(titleCaser.String(seg))
	}
	sb.WriteString("Entry")
	return sb.String()
}

// Types renders strawberry type definitions for every node under root.
// Classes nest the way qualified names do, so a field refers to its type by
// full name ("common.RawMsg"). Containers become empty-bodied classes that
// only hold their children.
func Types(root *typetree.Node, opts Options) string {
	r := &typeRenderer{log: opts.logger()}
	blocks := make([]string, 0, len(root.Children))
	for _, c := range root.Children {
		blocks = append(blocks, r.node(c, 0))
	}

	var sb strings.Builder
	sb.WriteString(preamble)
	for _, b := range blocks {
		sb.WriteString("\n\n")
		sb.WriteString(b)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// WriteTypes writes the output of Types to w.
func WriteTypes(w io.Writer, root *typetree.Node, opts Options) error {
	_, err := io.WriteString(w, Types(root, opts))
	return err
}

type typeRenderer struct {
	log *zap.Logger
}

func (r *typeRenderer) node(n *typetree.Node, depth int) string {
	indent := strings.Repeat(indentUnit, depth)
	if n.Enum != nil {
		return r.enum(n.Name, n.Enum, indent)
	}

	var nested []string
	for _, c := range n.Children {
		nested = append(nested, r.node(c, depth+1))
	}

	var fields []string
	if m := n.Message; m != nil {
		inner := indent + indentUnit
		for _, f := range m.SortedFields() {
			if err := schema.Supported(f); err != nil {
				r.log.Warn("types: skipping field", zap.String("message", m.FullName), zap.Error(err))
				continue
			}
			if f.IsMap() {
				nested = append(nested, r.entry(f, inner))
			}
			fields = append(fields, inner+f.Name+`: "`+r.fieldType(m, f)+`"`)
		}
	}

	var sb strings.Builder
	sb.WriteString(indent + "@strawberry.type\n")
	sb.WriteString(indent + "class " + n.Name + ":")
	if len(nested) > 0 {
		sb.WriteString("\n" + strings.Join(nested, "\n\n"))
	}
	for _, f := range fields {
		sb.WriteString("\n" + f)
	}
	if len(nested) == 0 && len(fields) == 0 {
		sb.WriteString("\n" + indent + indentUnit + "pass")
	}
	return sb.String()
}

func (r *typeRenderer) enum(name string, e *schema.Enum, indent string) string {
	var sb strings.Builder
	sb.WriteString(indent + "@strawberry.enum\n")
	sb.WriteString(indent + "class " + name + "(Enum):")
	for _, v := range e.Values {
		sb.WriteString("\n" + indent + indentUnit + v.Name + " = " + strconv.Itoa(int(v.Number)))
	}
	if len(e.Values) == 0 {
		sb.WriteString("\n" + indent + indentUnit + "pass")
	}
	return sb.String()
}

// entry renders the key/value class backing a map field.
func (r *typeRenderer) entry(f *schema.Field, indent string) string {
	inner := indent + indentUnit
	return indent + "@strawberry.type\n" +
		indent + "class " + EntryName(f.Name) + ":\n" +
		inner + `key: "` + pythonScalars[f.MapKey] + `"` + "\n" +
		inner + `value: "` + r.elemType(f) + `"`
}

func (r *typeRenderer) elemType(f *schema.Field) string {
	switch f.Kind {
	case schema.KindMessage:
		return f.Message.FullName
	case schema.KindEnum:
		return f.Enum.FullName
	default:
		return pythonScalars[f.Scalar]
	}
}

func (r *typeRenderer) fieldType(owner *schema.Message, f *schema.Field) string {
	switch f.Cardinality {
	case schema.Map:
		return "List[" + owner.FullName + "." + EntryName(f.Name) + "]"
	case schema.List:
		return "List[" + r.elemType(f) + "]"
	default:
		return r.elemType(f)
	}
}
