// Package schematest provides shared schemas and records for tests: a small
// protobuf-like type universe (common.RawMsg, N4, ComplexMessage, ...) plus
// builders for the record instances the tabular tests stream.
package schematest

import "github.com/wes-public-apps/protobuf-db/internal/schema"

// Universe holds one consistent set of schemas. Build a fresh one per test
// with New; the values are immutable once returned.
type Universe struct {
	RawMsg       *schema.Message
	N4           *schema.Message
	Complex      *schema.Message
	N5           *schema.Message
	N5Types      *schema.Enum
	N6           *schema.Message
	Specials     *schema.Message
	N3           *schema.Message
	Types        *schema.Message
	TypesEnum    *schema.Enum
	Tree         *schema.Message // self-referential
	Ping, Pong   *schema.Message // mutually referential
}

func scalar(name string, tag int32, t schema.ScalarType) *schema.Field {
	return &schema.Field{Name: name, Tag: tag, Kind: schema.KindScalar, Cardinality: schema.Singular, Scalar: t}
}

func message(name string, tag int32, m *schema.Message, c schema.Cardinality) *schema.Field {
	f := &schema.Field{Name: name, Tag: tag, Kind: schema.KindMessage, Cardinality: c, Message: m}
	if c == schema.Map {
		f.MapKey = schema.String
	}
	return f
}

// New builds the fixture universe.
func New() *Universe {
	u := &Universe{}

	u.RawMsg = &schema.Message{
		FullName: "common.RawMsg",
		Fields: []*schema.Field{
			scalar("id", 1, schema.Int32),
			scalar("timestamp", 2, schema.Int64),
			scalar("data", 3, schema.String),
		},
	}

	u.N4 = &schema.Message{
		FullName: "N4",
		Fields: []*schema.Field{
			scalar("id", 1, schema.Int32),
			message("raw_msgs", 2, u.RawMsg, schema.List),
			message("raw_msgs_by_id", 3, u.RawMsg, schema.Map),
		},
	}

	u.N5Types = &schema.Enum{
		FullName: "ComplexMessage.N5.N5Types",
		Values: []schema.EnumValue{
			{Name: "DEFAULT", Number: 0},
			{Name: "type1", Number: 1},
			{Name: "type2", Number: 2},
			{Name: "type3", Number: 3},
		},
	}
	u.N5 = &schema.Message{
		FullName: "ComplexMessage.N5",
		Fields: []*schema.Field{
			{Name: "types", Tag: 1, Kind: schema.KindEnum, Cardinality: schema.List, Enum: u.N5Types},
			scalar("data", 2, schema.String),
		},
		NestedEnums: []*schema.Enum{u.N5Types},
	}
	u.Complex = &schema.Message{
		FullName: "ComplexMessage",
		Fields: []*schema.Field{
			message("raw_msgs_by_id", 1, u.RawMsg, schema.Map),
			message("n4s", 2, u.N4, schema.List),
			message("n4s_by_id", 3, u.N4, schema.Map),
			message("n5s_by_id", 4, u.N5, schema.Map),
		},
		NestedMessages: []*schema.Message{u.N5},
	}
	u.N6 = &schema.Message{
		FullName: "N6",
		Fields:   []*schema.Field{message("n5val", 1, u.N5, schema.Singular)},
	}

	u.Specials = &schema.Message{
		FullName: "specials.TestSpecials",
		Fields: []*schema.Field{
			{Name: "list1", Tag: 1, Kind: schema.KindScalar, Cardinality: schema.List, Scalar: schema.String},
			{Name: "map1", Tag: 2, Kind: schema.KindScalar, Cardinality: schema.Map, Scalar: schema.String, MapKey: schema.String},
			scalar("fault1", 3, schema.Bool),
			scalar("fault2", 4, schema.Bool),
		},
	}

	u.N3 = &schema.Message{
		FullName: "types.N3",
		Fields: []*schema.Field{
			scalar("val1", 1, schema.Int32),
			scalar("val2", 2, schema.Int32),
		},
	}
	u.TypesEnum = &schema.Enum{
		FullName: "types.TYPES",
		Values: []schema.EnumValue{
			{Name: "default", Number: 0},
			{Name: "type1", Number: 1},
		},
	}
	u.Types = &schema.Message{
		FullName: "types.TestTypes",
		Fields: []*schema.Field{
			scalar("val1", 1, schema.Int32),
			scalar("val2", 2, schema.Double),
			scalar("val3", 3, schema.Int64),
			scalar("val4", 4, schema.Sint32),
			scalar("val5", 5, schema.Uint32),
			scalar("val6", 6, schema.Uint64),
			scalar("val7", 7, schema.Sint64),
			scalar("val8", 8, schema.Fixed32),
			scalar("val9", 9, schema.Fixed64),
			scalar("val10", 10, schema.Sfixed32),
			scalar("val11", 11, schema.Sfixed64),
			scalar("val12", 12, schema.Int64),
			scalar("val13", 13, schema.Bool),
			scalar("val14", 14, schema.String),
			scalar("val15", 15, schema.Bytes),
			{Name: "val16", Tag: 16, Kind: schema.KindEnum, Cardinality: schema.Singular, Enum: u.TypesEnum},
			message("val17", 17, u.N3, schema.Singular),
			message("val18", 18, u.N3, schema.Map),
			message("val19", 19, u.N3, schema.List),
		},
	}

	u.Tree = &schema.Message{FullName: "graph.Tree"}
	u.Tree.Fields = []*schema.Field{
		scalar("label", 1, schema.String),
		message("children", 2, u.Tree, schema.List),
	}

	u.Ping = &schema.Message{FullName: "graph.Ping"}
	u.Pong = &schema.Message{FullName: "graph.Pong"}
	u.Ping.Fields = []*schema.Field{scalar("n", 1, schema.Int32), message("pong", 2, u.Pong, schema.Singular)}
	u.Pong.Fields = []*schema.Field{scalar("n", 1, schema.Int32), message("ping", 2, u.Ping, schema.Singular)}

	return u
}

// Raw returns a common.RawMsg record.
func (u *Universe) Raw(id int32, timestamp int64, data string) *schema.Object {
	return schema.NewObject(u.RawMsg).
		Set("id", id).
		Set("timestamp", timestamp).
		Set("data", data)
}

// DefaultRaw is Raw(10, 23432, "data").
func (u *Universe) DefaultRaw() *schema.Object { return u.Raw(10, 23432, "data") }

// N4Record returns an N4 with two list items and map keys msg0 and msg1.
func (u *Universe) N4Record() *schema.Object {
	return schema.NewObject(u.N4).
		Set("id", int32(23)).
		Set("raw_msgs", []any{u.DefaultRaw(), u.Raw(11, 23432, "data")}).
		Set("raw_msgs_by_id", map[string]any{
			"msg0": u.DefaultRaw(),
			"msg1": u.Raw(11, 23432, "data"),
		})
}

// N4Stream returns the three N4 records whose shapes grow and shrink:
// the second adds raw_msgs[2] and key "a" and drops key "msg1", the third
// has all of msg0, msg1 and a.
func (u *Universe) N4Stream() []*schema.Object {
	first := u.N4Record()

	second := u.N4Record()
	second.Set("raw_msgs", append(second.Values["raw_msgs"].([]any), u.DefaultRaw()))
	second.Set("raw_msgs_by_id", map[string]any{
		"msg0": u.DefaultRaw(),
		"a":    u.DefaultRaw(),
	})

	third := u.N4Record()
	third.Set("raw_msgs", append(third.Values["raw_msgs"].([]any), u.DefaultRaw()))
	byID := third.Values["raw_msgs_by_id"].(map[string]any)
	byID["a"] = u.DefaultRaw()

	return []*schema.Object{first, second, third}
}

// N5Record returns a ComplexMessage.N5 record.
func (u *Universe) N5Record(data string, types ...int32) *schema.Object {
	vals := make([]any, len(types))
	for i, t := range types {
		vals[i] = schema.EnumNumber(t)
	}
	o := schema.NewObject(u.N5).Set("data", data)
	if len(vals) > 0 {
		o.Set("types", vals)
	}
	return o
}

// ComplexRecord mirrors the ComplexMessage instance used across tests.
func (u *Universe) ComplexRecord() *schema.Object {
	return schema.NewObject(u.Complex).
		Set("raw_msgs_by_id", map[string]any{
			"msg0": u.DefaultRaw(),
			"msg1": u.Raw(11, 23432, "data"),
		}).
		Set("n4s", []any{u.N4Record(), u.N4Record()}).
		Set("n4s_by_id", map[string]any{
			"msg0": u.N4Record(),
			"msg1": u.N4Record(),
		}).
		Set("n5s_by_id", map[string]any{
			"msg0": u.N5Record("n5_data", 1, 2),
			"msg1": u.N5Record("n5_data_1", 1, 2),
		})
}

// SpecialsRecord returns a specials.TestSpecials record.
func (u *Universe) SpecialsRecord() *schema.Object {
	return schema.NewObject(u.Specials).
		Set("list1", []any{"1", "2", "3"}).
		Set("map1", map[string]any{"key3": "val3", "key1": "val1", "key2": "val2"}).
		Set("fault1", true)
}

// TypesRecord returns a types.TestTypes record covering every scalar type.
func (u *Universe) TypesRecord() *schema.Object {
	n3 := func(a, b int32) *schema.Object {
		return schema.NewObject(u.N3).Set("val1", a).Set("val2", b)
	}
	return schema.NewObject(u.Types).
		Set("val1", int32(-320)).
		Set("val2", 0.032).
		Set("val3", int64(-24)).
		Set("val4", int32(-2439723)).
		Set("val5", uint32(32845)).
		Set("val6", uint64(89345230)).
		Set("val7", int64(-32932)).
		Set("val8", uint32(329323)).
		Set("val9", uint64(843782)).
		Set("val10", int32(348795439)).
		Set("val11", int64(-329823)).
		Set("val12", int64(-329823238)).
		Set("val13", false).
		Set("val14", "hello world").
		Set("val15", []byte("jknq3290dskss")).
		Set("val16", schema.EnumNumber(1)).
		Set("val17", n3(1, 2)).
		Set("val18", map[string]any{"msg1": n3(1, 2), "msg2": n3(1, 1)}).
		Set("val19", []any{n3(0, 0), schema.NewObject(u.N3), schema.NewObject(u.N3)})
}
