package protosrc_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"

	"github.com/wes-public-apps/protobuf-db/internal/codegen"
	"github.com/wes-public-apps/protobuf-db/internal/flatten"
	"github.com/wes-public-apps/protobuf-db/internal/protosrc"
	"github.com/wes-public-apps/protobuf-db/internal/schema"
)

func TestConverter(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	conv := protosrc.NewConverter()

	n4Type, err := reg.MessageType("N4")
	require.NoError(t, err)
	rawType, err := reg.MessageType("common.RawMsg")
	require.NoError(t, err)

	n4 := conv.Message(n4Type.Descriptor())
	raw := conv.Message(rawType.Descriptor())

	require.Len(t, n4.Fields, 3)
	byID := n4.FieldByName("raw_msgs_by_id")
	require.NotNil(t, byID)
	assert.Equal(t, schema.Map, byID.Cardinality)
	assert.Equal(t, schema.KindMessage, byID.Kind)
	assert.Equal(t, schema.String, byID.MapKey)
	assert.Same(t, raw, byID.Message)
	assert.Same(t, raw, n4.FieldByName("raw_msgs").Message)
	assert.Empty(t, n4.NestedMessages, "map entries are not nested types")

	sampleType, err := reg.MessageType("kinds.Sample")
	require.NoError(t, err)
	sample := conv.Message(sampleType.Descriptor())
	assert.Same(t, sample, sample.FieldByName("child").Message)
	assert.Equal(t, schema.KindEnum, sample.FieldByName("colors").Kind)
	assert.Equal(t, schema.List, sample.FieldByName("colors").Cardinality)
	assert.Equal(t, []schema.EnumValue{{Name: "RED", Number: 0}, {Name: "GREEN", Number: 1}},
		sample.FieldByName("color").Enum.Values)
	assert.Equal(t, schema.Int32, sample.FieldByName("labels").MapKey)
	assert.Equal(t, schema.String, sample.FieldByName("labels").Scalar)
}

func TestProviderFlattensDynamicMessages(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	fl := flatten.New(protosrc.NewProvider(nil))

	cases := []struct {
		name   string
		kind   string
		doc    string
		header string
		line   string
	}{
		{
			name:   "raw",
			kind:   "common.RawMsg",
			doc:    rawDoc,
			header: "id,timestamp,data",
			line:   "10,23432,data",
		},
		{
			name: "n4",
			kind: "N4",
			doc:  n4Doc,
			header: "id,raw_msgs[0].id,raw_msgs[0].timestamp,raw_msgs[0].data," +
				"raw_msgs[1].id,raw_msgs[1].timestamp,raw_msgs[1].data," +
				`raw_msgs_by_id["msg0"].id,raw_msgs_by_id["msg0"].timestamp,raw_msgs_by_id["msg0"].data,` +
				`raw_msgs_by_id["msg1"].id,raw_msgs_by_id["msg1"].timestamp,raw_msgs_by_id["msg1"].data`,
			line: "23,10,23432,data,11,23432,data,10,23432,data,11,23432,data",
		},
		{
			name: "sample_with_unset_self_reference",
			kind: "kinds.Sample",
			doc:  `{"blob":"ams=","color":"GREEN","colors":["GREEN","RED"],"ratio":0.5,"labels":{"2":"b","10":"a"}}`,
			header: `blob,color,colors[0],colors[1],ratio,labels["10"],labels["2"],` +
				"child.blob,child.color,child.ratio",
			line: "6a 6b,1,1,0,0.5,a,b,,0,0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fields, err := fl.Flatten(decode(t, reg, tc.kind, tc.doc))
			require.NoError(t, err)
			header, line := flatten.ToCSV(fields)
			assert.Equal(t, tc.header, header)
			assert.Equal(t, tc.line, line)
		})
	}
}

func TestProviderRejectsForeignRecords(t *testing.T) {
	t.Parallel()

	p := protosrc.NewProvider(nil)
	_, err := p.Describe("not a message")
	assert.ErrorIs(t, err, schema.ErrShapeMismatch)
}

func TestProviderFieldFromOtherSchema(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	p := protosrc.NewProvider(nil)
	rec := decode(t, reg, "common.RawMsg", rawDoc)

	_, err := p.Value(rec, &schema.Field{Name: "nope", Tag: 9, Kind: schema.KindScalar, Scalar: schema.String})
	assert.ErrorIs(t, err, schema.ErrShapeMismatch)
}

func TestQueryFromDescriptor(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	mt, err := reg.MessageType("N4")
	require.NoError(t, err)

	q, err := codegen.Query(protosrc.NewConverter().Message(mt.Descriptor()), codegen.Options{})
	require.NoError(t, err)
	assert.Equal(t,
		"{\n\tid\n\traw_msgs {\n\t\tid\n\t\ttimestamp\n\t\tdata\n\t}\n\traw_msgs_by_id {\n\t\tkey\n\t\tvalue {\n\t\t\tid\n\t\t\ttimestamp\n\t\t\tdata\n\t\t}\n\t}\n}",
		q)
}

func TestLoadDescriptorSet(t *testing.T) {
	t.Parallel()

	data, err := proto.Marshal(descriptorSet())
	require.NoError(t, err)

	reg, err := protosrc.LoadDescriptorSet(bytes.NewReader(data))
	require.NoError(t, err)

	want := []string{"common.RawMsg", "N4", "kinds.Sample"}
	got := reg.MessageNames()
	if diff := cmp.Diff(want, got, cmpSortStrings()); diff != "" {
		t.Fatalf("message names (-want +got):\n%s", diff)
	}

	_, err = protosrc.LoadDescriptorSet(bytes.NewReader([]byte{0xff, 0xff}))
	assert.Error(t, err)
}

func TestReaderDelimited(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	var buf bytes.Buffer
	for _, doc := range []string{rawDoc, `{"id":11}`, `{"data":"x"}`} {
		_, err := protodelim.MarshalTo(&buf, decode(t, reg, "common.RawMsg", doc))
		require.NoError(t, err)
	}

	rd, err := protosrc.NewReader(&buf, reg, protosrc.ReaderOptions{
		Format:      protosrc.FormatDelimited,
		MessageName: "common.RawMsg",
	})
	require.NoError(t, err)

	fl := flatten.New(protosrc.NewProvider(nil))
	var lines []string
	require.NoError(t, rd.Each(func(m proto.Message) error {
		fields, err := fl.Flatten(m)
		if err != nil {
			return err
		}
		_, line := flatten.ToCSV(fields)
		lines = append(lines, line)
		return nil
	}))
	assert.Equal(t, []string{"10,23432,data", "11,0,", "0,0,x"}, lines)
	assert.Equal(t, int64(3), rd.Count())
}

func TestReaderUnknownInputs(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)

	_, err := protosrc.NewReader(bytes.NewReader(nil), reg, protosrc.ReaderOptions{MessageName: "no.Such"})
	assert.Error(t, err)

	_, err = protosrc.NewReader(bytes.NewReader(nil), reg, protosrc.ReaderOptions{Format: "xml"})
	assert.Error(t, err)

	_, err = protosrc.NewReader(bytes.NewReader([]byte(`[]`)), reg, protosrc.ReaderOptions{
		Format:   protosrc.FormatJSON,
		Selector: "$[",
	})
	assert.Error(t, err)
}
