package protosrc_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/wes-public-apps/protobuf-db/internal/protosrc"
)

func scalarField(name string, num int32, t descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(num),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     t.Enum(),
		JsonName: proto.String(jsonName(name)),
	}
}

func refField(name string, num int32, t descriptorpb.FieldDescriptorProto_Type, typeName string, repeated bool) *descriptorpb.FieldDescriptorProto {
	f := scalarField(name, num, t)
	f.TypeName = proto.String(typeName)
	if repeated {
		f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	}
	return f
}

func mapEntry(name string, key *descriptorpb.FieldDescriptorProto, value *descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:    proto.String(name),
		Field:   []*descriptorpb.FieldDescriptorProto{key, value},
		Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
	}
}

func jsonName(s string) string {
	out := make([]byte, 0, len(s))
	upper := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}

const (
	tInt32   = descriptorpb.FieldDescriptorProto_TYPE_INT32
	tInt64   = descriptorpb.FieldDescriptorProto_TYPE_INT64
	tString  = descriptorpb.FieldDescriptorProto_TYPE_STRING
	tBytes   = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	tDouble  = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	tEnum    = descriptorpb.FieldDescriptorProto_TYPE_ENUM
	tMessage = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
)

// descriptorSet describes:
//
//	// common.proto
//	package common;
//	message RawMsg { int32 id = 1; int64 timestamp = 2; string data = 3; }
//
//	// n4.proto
//	message N4 {
//	  int32 id = 1;
//	  repeated common.RawMsg raw_msgs = 2;
//	  map<string, common.RawMsg> raw_msgs_by_id = 3;
//	}
//
//	// kinds.proto
//	package kinds;
//	enum Color { RED = 0; GREEN = 1; }
//	message Sample {
//	  bytes blob = 1; Color color = 2; repeated Color colors = 3;
//	  double ratio = 4; map<int32, string> labels = 5; Sample child = 6;
//	}
func descriptorSet() *descriptorpb.FileDescriptorSet {
	common := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("common.proto"),
		Package: proto.String("common"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("RawMsg"),
			Field: []*descriptorpb.FieldDescriptorProto{
				scalarField("id", 1, tInt32),
				scalarField("timestamp", 2, tInt64),
				scalarField("data", 3, tString),
			},
		}},
	}

	n4 := &descriptorpb.FileDescriptorProto{
		Name:       proto.String("n4.proto"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"common.proto"},
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("N4"),
			Field: []*descriptorpb.FieldDescriptorProto{
				scalarField("id", 1, tInt32),
				refField("raw_msgs", 2, tMessage, ".common.RawMsg", true),
				refField("raw_msgs_by_id", 3, tMessage, ".N4.RawMsgsByIdEntry", true),
			},
			NestedType: []*descriptorpb.DescriptorProto{
				mapEntry("RawMsgsByIdEntry",
					scalarField("key", 1, tString),
					refField("value", 2, tMessage, ".common.RawMsg", false)),
			},
		}},
	}

	kinds := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("kinds.proto"),
		Package: proto.String("kinds"),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("Color"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("RED"), Number: proto.Int32(0)},
				{Name: proto.String("GREEN"), Number: proto.Int32(1)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Sample"),
			Field: []*descriptorpb.FieldDescriptorProto{
				scalarField("blob", 1, tBytes),
				refField("color", 2, tEnum, ".kinds.Color", false),
				refField("colors", 3, tEnum, ".kinds.Color", true),
				scalarField("ratio", 4, tDouble),
				refField("labels", 5, tMessage, ".kinds.Sample.LabelsEntry", true),
				refField("child", 6, tMessage, ".kinds.Sample", false),
			},
			NestedType: []*descriptorpb.DescriptorProto{
				mapEntry("LabelsEntry", scalarField("key", 1, tInt32), scalarField("value", 2, tString)),
			},
		}},
	}

	return &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{common, n4, kinds}}
}

func newRegistry(t *testing.T) *protosrc.Registry {
	t.Helper()
	reg, err := protosrc.NewRegistry(descriptorSet())
	require.NoError(t, err)
	return reg
}

// decode builds a dynamic message of type name from protojson.
func decode(t *testing.T, reg *protosrc.Registry, name, doc string) proto.Message {
	t.Helper()
	mt, err := reg.MessageType(name)
	require.NoError(t, err)
	msg := mt.New().Interface()
	require.NoError(t, protojson.UnmarshalOptions{Resolver: reg.Types}.Unmarshal([]byte(doc), msg))
	return msg
}

const (
	rawDoc = `{"id":10,"timestamp":"23432","data":"data"}`
	n4Doc  = `{"id":23,
		"rawMsgs":[{"id":10,"timestamp":"23432","data":"data"},{"id":11,"timestamp":"23432","data":"data"}],
		"rawMsgsById":{"msg1":{"id":11,"timestamp":"23432","data":"data"},"msg0":{"id":10,"timestamp":"23432","data":"data"}}}`
)
