package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Job decoding tests
// -----------------------------------------------------------------------------
//
// Decoding goes through yaml.v3 with KnownFields, so both YAML and JSON job
// files are covered here, along with strictness on unknown keys.

func TestDecode_YAML(t *testing.T) {
	t.Parallel()

	const doc = `
job: nightly
source:
  kind: http
  http:
    url: https://example.com/dump.bin
    timeout: 45s
    max_retries: 3
    headers: { Authorization: "Bearer x" }
records:
  format: delimited
  descriptors: schemas/all.pb
output:
  kind: db
  mixed: true
storage:
  kind: postgres
  db:
    dsn: postgresql://u:p@db:5432/x
    schema: raw
    table_prefix: pb_
    auto_create_table: true
runtime:
  finalize_workers: 4
  batch_size: 1000
metrics:
  backend: datadog
  options:
    addr: 127.0.0.1:8125
    namespace: pbflat.
    tags: [env:test, team:data]
`
	job, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if job.Job != "nightly" {
		t.Fatalf("job = %q, want nightly", job.Job)
	}
	if job.Source.Kind != "http" || job.Source.HTTP.URL != "https://example.com/dump.bin" {
		t.Fatalf("source decoded = %#v", job.Source)
	}
	if job.Source.HTTP.MaxRetries != 3 || job.Source.HTTP.Timeout != "45s" {
		t.Fatalf("http retries/timeout = %d/%q", job.Source.HTTP.MaxRetries, job.Source.HTTP.Timeout)
	}
	if job.Source.HTTP.Headers["Authorization"] != "Bearer x" {
		t.Fatalf("headers = %#v", job.Source.HTTP.Headers)
	}
	if job.Records.Format != "delimited" || job.Records.Message != "" {
		t.Fatalf("records decoded = %#v", job.Records)
	}
	if job.Output.Kind != "db" || !job.Output.Mixed {
		t.Fatalf("output decoded = %#v", job.Output)
	}
	if job.Storage.DB.TablePrefix != "pb_" || !job.Storage.DB.AutoCreateTable {
		t.Fatalf("storage decoded = %#v", job.Storage)
	}
	if job.Runtime.FinalizeWorkers != 4 || job.Runtime.BatchSize != 1000 {
		t.Fatalf("runtime decoded = %#v", job.Runtime)
	}
	if got := job.Metrics.Options.StringSlice("tags"); !reflect.DeepEqual(got, []string{"env:test", "team:data"}) {
		t.Fatalf("metrics tags = %#v", got)
	}
	if got := job.Metrics.Options.String("namespace", ""); got != "pbflat." {
		t.Fatalf("metrics namespace = %q", got)
	}
}

func TestDecode_JSON(t *testing.T) {
	t.Parallel()

	const doc = `{
	  "job": "one-kind",
	  "source": { "kind": "file", "file": { "path": "in.jsonl" } },
	  "records": { "format": "jsonl", "message": "common.RawMsg" },
	  "output": { "kind": "csv", "path": "out.csv" },
	  "metrics": { "backend": "prometheus", "options": { "url": "http://pg:9091" } }
	}`
	job, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if job.Source.File.Path != "in.jsonl" || job.Records.Message != "common.RawMsg" {
		t.Fatalf("decoded = %#v", job)
	}
	if job.Metrics.Options.String("url", "") != "http://pg:9091" {
		t.Fatalf("metrics options = %#v", job.Metrics.Options)
	}
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader("job: x\nsorce: {}\n"))
	if err == nil || !strings.Contains(err.Error(), "sorce") {
		t.Fatalf("Decode err = %v, want unknown field error naming sorce", err)
	}
}

func TestDecode_Empty(t *testing.T) {
	t.Parallel()

	if _, err := Decode(strings.NewReader("")); err == nil {
		t.Fatalf("Decode(empty) err = nil, want error")
	}
}

func TestDecode_NullOptions(t *testing.T) {
	t.Parallel()

	job, err := Decode(strings.NewReader("metrics:\n  backend: datadog\n  options: null\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := job.Metrics.Options.String("addr", "def"); got != "def" {
		t.Fatalf("String(addr) on null options = %q, want def", got)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "job.yaml")
	if err := os.WriteFile(path, []byte("job: from-disk\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	job, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if job.Job != "from-disk" {
		t.Fatalf("job = %q", job.Job)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load(missing) err = nil")
	}
}

// -----------------------------------------------------------------------------
// Options helper tests (hermetic).
// -----------------------------------------------------------------------------

func TestOptions_DefaultsAndCoercion(t *testing.T) {
	t.Parallel()

	o := Options{
		"s":  "hello",
		"b":  true,
		"f":  float64(42), // encoding/json
		"i":  7,           // yaml.v3
		"m":  map[string]any{"A": "a", "X": 1},
		"s1": []any{"alpha", 3, "beta"},
		"s2": []string{"gamma"},
	}

	if got := o.String("s", "def"); got != "hello" {
		t.Fatalf("String(s) = %q, want hello", got)
	}
	if got := o.String("b", "def"); got != "def" {
		t.Fatalf("String(b) = %q, want def for non-string", got)
	}
	if got := o.Bool("b", false); !got {
		t.Fatalf("Bool(b) = %v, want true", got)
	}
	if got := o.Int("f", 0); got != 42 {
		t.Fatalf("Int(f) = %d, want 42", got)
	}
	if got := o.Int("i", 0); got != 7 {
		t.Fatalf("Int(i) = %d, want 7", got)
	}
	if got := o.Int("missing", 3); got != 3 {
		t.Fatalf("Int(missing) = %d, want 3", got)
	}
	if got := o.StringMap("m"); !reflect.DeepEqual(got, map[string]string{"A": "a"}) {
		t.Fatalf("StringMap(m) = %#v", got)
	}
	if got := o.StringSlice("s1"); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Fatalf("StringSlice(s1) = %#v", got)
	}
	if got := o.StringSlice("s2"); !reflect.DeepEqual(got, []string{"gamma"}) {
		t.Fatalf("StringSlice(s2) = %#v", got)
	}
	if got := o.StringSlice("missing"); got != nil {
		t.Fatalf("StringSlice(missing) = %#v, want nil", got)
	}
}

func TestOptions_UnmarshalJSONNull(t *testing.T) {
	t.Parallel()

	var o Options
	if err := o.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatalf("UnmarshalJSON(null): %v", err)
	}
	if o == nil || len(o) != 0 {
		t.Fatalf("UnmarshalJSON(null) = %#v, want empty non-nil", o)
	}
}
