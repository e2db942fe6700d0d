// Package flatten walks a record against its schema and produces the ordered
// (path, value) pairs that become CSV columns.
//
// Paths are built from three segment forms:
//
//	name          singular field (nested fields join with ".")
//	name[3]       list element, zero-based, in source order
//	name["key"]   map element, keys sorted by their rendered string form
//
// Fields are visited in ascending tag order. A singular message field that is
// unset still contributes all of its leaves with default values, because the
// source schema always reports such a field as present.
package flatten

import (
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wes-public-apps/protobuf-db/internal/schema"
)

// Field is one flattened leaf. Value keeps its Go type (bytes stay []byte);
// FormatValue renders it as text.
type Field struct {
	Path  string
	Value any
}

// Flattener flattens records read through a schema.Provider. It is safe to
// reuse across records; it keeps no per-record state.
type Flattener struct {
	provider schema.Provider
	log      *zap.Logger
	skipped  atomic.Int64
}

// Option configures a Flattener.
type Option func(*Flattener)

// WithLogger sets the logger used for dropped-field diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(f *Flattener) {
		if l != nil {
			f.log = l
		}
	}
}

// New returns a Flattener reading values through p.
func New(p schema.Provider, opts ...Option) *Flattener {
	f := &Flattener{provider: p, log: zap.NewNop()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Skipped returns how many field occurrences were dropped because their kind
// is not supported.
func (f *Flattener) Skipped() int64 { return f.skipped.Load() }

// Provider returns the provider the flattener reads through.
func (f *Flattener) Provider() schema.Provider { return f.provider }

// Flatten describes rec through the provider and flattens it.
func (f *Flattener) Flatten(rec any) ([]Field, error) {
	m, err := f.provider.Describe(rec)
	if err != nil {
		return nil, err
	}
	return f.FlattenAs(rec, m)
}

// FlattenAs flattens rec against the given schema.
func (f *Flattener) FlattenAs(rec any, m *schema.Message) ([]Field, error) {
	out := make([]Field, 0, len(m.Fields))
	return f.walk(rec, m, "", out, nil)
}

// walk appends the leaves of rec (of type m) under prefix. A nil rec means
// the message is unset and every leaf takes its default. zeroing holds the
// message types currently being default-filled on this path; re-entering
// one of them would never terminate for recursive types, so it stops there.
func (f *Flattener) walk(rec any, m *schema.Message, prefix string, out []Field, zeroing map[*schema.Message]bool) ([]Field, error) {
	if rec == nil {
		if zeroing[m] {
			return out, nil
		}
		if zeroing == nil {
			zeroing = map[*schema.Message]bool{}
		}
		zeroing[m] = true
		defer delete(zeroing, m)
	}

	for _, fd := range m.SortedFields() {
		if err := schema.Supported(fd); err != nil {
			f.skipped.Add(1)
			f.log.Warn("dropping field of unsupported kind",
				zap.String("message", m.FullName),
				zap.String("field", fd.Name),
				zap.Error(err))
			continue
		}

		var v any
		if rec != nil {
			var err error
			if v, err = f.provider.Value(rec, fd); err != nil {
				return out, err
			}
		}

		name := join(prefix, fd.Name)
		var err error
		switch fd.Cardinality {
		case schema.Singular:
			out, err = f.single(fd, v, name, out, zeroing)
		case schema.List:
			out, err = f.list(m, fd, v, name, out)
		case schema.Map:
			out, err = f.mapped(m, fd, v, name, out)
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (f *Flattener) single(fd *schema.Field, v any, path string, out []Field, zeroing map[*schema.Message]bool) ([]Field, error) {
	if fd.Kind == schema.KindMessage {
		if v == nil {
			return f.walk(nil, fd.Message, path, out, zeroing)
		}
		return f.walk(v, fd.Message, path, out, nil)
	}
	if v == nil {
		v = zero(fd)
	}
	return append(out, Field{Path: path, Value: v}), nil
}

func (f *Flattener) list(m *schema.Message, fd *schema.Field, v any, path string, out []Field) ([]Field, error) {
	if v == nil {
		return out, nil
	}
	items, ok := v.([]any)
	if !ok {
		return out, &schema.ShapeError{Kind: m.FullName, Field: fd.Name, Reason: fmt.Sprintf("list value has type %T", v)}
	}
	var err error
	for i, item := range items {
		p := path + "[" + strconv.Itoa(i) + "]"
		if fd.Kind == schema.KindMessage {
			if out, err = f.element(fd, item, p, out); err != nil {
				return out, err
			}
			continue
		}
		out = append(out, Field{Path: p, Value: orZero(fd, item)})
	}
	return out, nil
}

func (f *Flattener) mapped(m *schema.Message, fd *schema.Field, v any, path string, out []Field) ([]Field, error) {
	if v == nil {
		return out, nil
	}
	entries, ok := v.([]schema.MapEntry)
	if !ok {
		return out, &schema.ShapeError{Kind: m.FullName, Field: fd.Name, Reason: fmt.Sprintf("map value has type %T", v)}
	}

	type keyed struct {
		key   string
		value any
	}
	sorted := make([]keyed, len(entries))
	for i, e := range entries {
		sorted[i] = keyed{key: FormatKey(e.Key), value: e.Value}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].key < sorted[j].key })

	var err error
	for _, e := range sorted {
		p := path + `["` + e.key + `"]`
		if fd.Kind == schema.KindMessage {
			if out, err = f.element(fd, e.value, p, out); err != nil {
				return out, err
			}
			continue
		}
		out = append(out, Field{Path: p, Value: orZero(fd, e.value)})
	}
	return out, nil
}

// element flattens one message inside a list or map. A nil element is
// present but empty and gets defaults.
func (f *Flattener) element(fd *schema.Field, item any, path string, out []Field) ([]Field, error) {
	return f.walk(item, fd.Message, path, out, nil)
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func orZero(fd *schema.Field, v any) any {
	if v == nil {
		return zero(fd)
	}
	return v
}

func zero(fd *schema.Field) any {
	if fd.Kind == schema.KindEnum {
		if fd.Enum != nil && len(fd.Enum.Values) > 0 {
			return schema.EnumNumber(fd.Enum.Values[0].Number)
		}
		return schema.EnumNumber(0)
	}
	return fd.Scalar.Zero()
}

// Split separates flattened fields into parallel path and value slices.
func Split(fields []Field) (paths []string, values []any) {
	paths = make([]string, len(fields))
	values = make([]any, len(fields))
	for i, fl := range fields {
		paths[i] = fl.Path
		values[i] = fl.Value
	}
	return paths, values
}
