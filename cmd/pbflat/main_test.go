package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/wes-public-apps/protobuf-db/internal/codegen"
)

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := newRootCmd()
	var out, errb bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errb)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errb.String(), err
}

func writeDelimited(t *testing.T, path string, msgs ...proto.Message) {
	t.Helper()
	var buf bytes.Buffer
	for _, m := range msgs {
		_, err := protodelim.MarshalTo(&buf, m)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func packAny(t *testing.T, m proto.Message) *anypb.Any {
	t.Helper()
	a, err := anypb.New(m)
	require.NoError(t, err)
	return a
}

func TestFlattenToStdout(t *testing.T) {
	in := filepath.Join(t.TempDir(), "ts.bin")
	writeDelimited(t, in,
		&timestamppb.Timestamp{Seconds: 1, Nanos: 2},
		&timestamppb.Timestamp{Seconds: 3},
	)

	out, _, err := runCLI(t, "flatten", "--message", "google.protobuf.Timestamp", "--in-memory", in)
	require.NoError(t, err)
	assert.Equal(t, "seconds,nanos\n1,2\n3,0\n", out)
}

func TestFlattenGzipToFile(t *testing.T) {
	dir := t.TempDir()
	var raw bytes.Buffer
	_, err := protodelim.MarshalTo(&raw, &durationpb.Duration{Seconds: 60})
	require.NoError(t, err)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err = zw.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	in := filepath.Join(dir, "d.bin.gz")
	require.NoError(t, os.WriteFile(in, gz.Bytes(), 0o644))

	outPath := filepath.Join(dir, "d.csv")
	_, _, err = runCLI(t, "flatten", "--message", "google.protobuf.Duration", "-o", outPath, in)
	require.NoError(t, err)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "seconds,nanos\n60,0\n", string(got))
}

func TestFlattenRequiresMessage(t *testing.T) {
	_, stderr, err := runCLI(t, "flatten", filepath.Join(t.TempDir(), "none.bin"))
	require.Error(t, err)
	assert.Contains(t, stderr, "records.message")
}

func TestDemuxToDirectory(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "mixed.bin")
	writeDelimited(t, in,
		packAny(t, &timestamppb.Timestamp{Seconds: 10}),
		packAny(t, &durationpb.Duration{Nanos: 5}),
		packAny(t, &timestamppb.Timestamp{Seconds: 11, Nanos: 1}),
	)
	outDir := filepath.Join(dir, "tables")

	_, _, err := runCLI(t, "demux", "--in-memory", "--out", outDir, in)
	require.NoError(t, err)

	ts, err := os.ReadFile(filepath.Join(outDir, "google.protobuf.Timestamp.csv"))
	require.NoError(t, err)
	assert.Equal(t, "seconds,nanos\n10,0\n11,1\n", string(ts))

	d, err := os.ReadFile(filepath.Join(outDir, "google.protobuf.Duration.csv"))
	require.NoError(t, err)
	assert.Equal(t, "seconds,nanos\n0,5\n", string(d))
}

func TestRunJobIntoSQLite(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "mixed.bin")
	writeDelimited(t, in,
		packAny(t, &timestamppb.Timestamp{Seconds: 5}),
		packAny(t, &durationpb.Duration{Seconds: 7, Nanos: 8}),
	)
	dbPath := filepath.Join(dir, "flat.db")
	jobPath := filepath.Join(dir, "job.yaml")
	job := `job: sqlite-it
source:
  kind: file
  file: { path: "` + in + `" }
records:
  format: delimited
output:
  kind: db
  mixed: true
storage:
  kind: sqlite
  db:
    dsn: "` + dbPath + `"
    table_prefix: pb_
    auto_create_table: true
runtime:
  in_memory: true
  finalize_workers: 2
`
	require.NoError(t, os.WriteFile(jobPath, []byte(job), 0o644))

	_, _, err := runCLI(t, "run", "--config", jobPath)
	require.NoError(t, err)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var seconds, nanos string
	require.NoError(t, db.QueryRow(`SELECT seconds, nanos FROM pb_google_protobuf_Timestamp`).Scan(&seconds, &nanos))
	assert.Equal(t, "5", seconds)
	assert.Equal(t, "0", nanos)
	require.NoError(t, db.QueryRow(`SELECT seconds, nanos FROM pb_google_protobuf_Duration`).Scan(&seconds, &nanos))
	assert.Equal(t, "7", seconds)
	assert.Equal(t, "8", nanos)
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "ok.yaml")
	require.NoError(t, os.WriteFile(valid, []byte(`job: j
source: { kind: file, file: { path: in.bin } }
records: { message: google.protobuf.Timestamp }
output: { kind: csv, path: out.csv }
`), 0o644))
	out, stderr, err := runCLI(t, "run", "--config", valid, "--validate")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")
	assert.Contains(t, stderr, "warning: records.descriptors")

	invalid := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte(`source: { kind: ftp }
output: { kind: csv, path: out.csv, mixed: true }
`), 0o644))
	_, stderr, err = runCLI(t, "run", "--config", invalid, "--validate")
	require.Error(t, err)
	assert.Contains(t, stderr, "error: job:")
	assert.Contains(t, stderr, "error: source.kind:")

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("job: j\nsurprise: 1\n"), 0o644))
	_, _, err = runCLI(t, "run", "--config", unknown, "--validate")
	require.Error(t, err)
}

func TestQueryCommand(t *testing.T) {
	out, _, err := runCLI(t, "query", "google.protobuf.Timestamp")
	require.NoError(t, err)
	assert.Equal(t, "{\n\tseconds\n\tnanos\n}\n", out)

	_, _, err = runCLI(t, "query", "google.protobuf.DescriptorProto")
	require.ErrorIs(t, err, codegen.ErrRecursiveQuery)

	out, _, err = runCLI(t, "query", "--max-depth", "2", "google.protobuf.DescriptorProto")
	require.NoError(t, err)
	assert.Contains(t, out, "\tname\n")

	_, _, err = runCLI(t, "query", "no.such.Message")
	require.Error(t, err)
}

func TestTypesCommand(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "types.py")
	_, _, err := runCLI(t, "types", "-o", outPath, "google.protobuf.Duration")
	require.NoError(t, err)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	s := string(got)
	assert.Contains(t, s, "import strawberry")
	assert.Contains(t, s, "class Duration:")
	assert.Contains(t, s, `seconds: "int"`)
	assert.Contains(t, s, `nanos: "int"`)
}
