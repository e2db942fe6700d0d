// Package config defines the job file read by `pbflat run`: where records
// come from, how they are encoded, and where the flattened tables go.
//
// Job files are YAML. JSON is valid YAML, so the same decoder reads both.
//
// Example:
//
//	job: telemetry-nightly
//	source:
//	  kind: http
//	  http: { url: "https://example.com/dump.bin", max_retries: 3 }
//	records:
//	  format: delimited
//	  descriptors: "schemas/telemetry.pb"
//	output:
//	  kind: csv
//	  path: out/
//	  mixed: true
//	runtime:
//	  finalize_workers: 4
//	metrics:
//	  backend: prometheus
//	  options: { url: "http://pushgateway:9091" }
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Job is the top-level object of a job file.
type Job struct {
	// Job names the run; it labels metrics and log lines.
	Job string `yaml:"job" json:"job"`

	Source  Source        `yaml:"source" json:"source"`
	Records Records       `yaml:"records" json:"records"`
	Output  Output        `yaml:"output" json:"output"`
	Storage Storage       `yaml:"storage" json:"storage"`
	Runtime RuntimeConfig `yaml:"runtime" json:"runtime"`
	Metrics Metrics       `yaml:"metrics" json:"metrics"`
}

// Source identifies where the record stream is read from.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `yaml:"kind" json:"kind"`

	File SourceFile `yaml:"file" json:"file"`
	HTTP SourceHTTP `yaml:"http" json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `yaml:"path" json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL string `yaml:"url" json:"url"`
	// Timeout is a Go duration string ("30s"); empty keeps the client default.
	Timeout            string            `yaml:"timeout" json:"timeout"`
	MaxRetries         int               `yaml:"max_retries" json:"max_retries"`
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
	Headers            map[string]string `yaml:"headers" json:"headers"`
}

// Records describes the encoding of the stream.
type Records struct {
	// Format is "delimited", "jsonl" or "json".
	Format string `yaml:"format" json:"format"`

	// Message is the full name of every record. Leave empty when the stream
	// holds google.protobuf.Any records of several kinds.
	Message string `yaml:"message" json:"message"`

	// Selector is the JSONPath selecting records in a "json" document.
	Selector string `yaml:"selector" json:"selector"`

	// Descriptors is a FileDescriptorSet path or http(s) URL. Empty resolves
	// names against the types compiled into the binary.
	Descriptors string `yaml:"descriptors" json:"descriptors"`
}

// Output selects the destination of flattened tables.
type Output struct {
	// Kind is "csv" or "db". For "db" the storage block is used.
	Kind string `yaml:"kind" json:"kind"`

	// Path is a file for a single-kind CSV run and a directory when Mixed.
	Path string `yaml:"path" json:"path"`

	// Mixed routes records by kind, one table per kind.
	Mixed bool `yaml:"mixed" json:"mixed"`
}

// Storage selects the database backend for db output.
type Storage struct {
	// Kind selects the backend: "postgres", "mysql", "mssql" or "sqlite".
	Kind string `yaml:"kind" json:"kind"`

	DB DBConfig `yaml:"db" json:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	// DSN is the backend connection string.
	DSN string `yaml:"dsn" json:"dsn"`

	// Schema optionally qualifies every created table ("public").
	Schema string `yaml:"schema" json:"schema"`

	// TablePrefix is prepended to the table derived from each record kind.
	TablePrefix string `yaml:"table_prefix" json:"table_prefix"`

	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS from the final header.
	AutoCreateTable bool `yaml:"auto_create_table" json:"auto_create_table"`
}

// RuntimeConfig controls scratch storage and concurrency.
type RuntimeConfig struct {
	ScratchDir      string `yaml:"scratch_dir" json:"scratch_dir"`
	InMemory        bool   `yaml:"in_memory" json:"in_memory"`
	FinalizeWorkers int    `yaml:"finalize_workers" json:"finalize_workers"`
	BatchSize       int    `yaml:"batch_size" json:"batch_size"`
}

// Metrics selects a metrics backend. Options are backend specific:
//
//	prometheus: url (string)
//	datadog:    addr (string), namespace (string), tags ([]string)
type Metrics struct {
	Backend string  `yaml:"backend" json:"backend"`
	Options Options `yaml:"options" json:"options"`
}

// Load reads a job file from disk.
func Load(path string) (Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return Job{}, fmt.Errorf("open job file: %w", err)
	}
	defer f.Close()

	job, err := Decode(f)
	if err != nil {
		return Job{}, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}

// Decode reads a job from r, rejecting unknown keys.
func Decode(r io.Reader) (Job, error) {
	var job Job
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&job); err != nil {
		if err == io.EOF {
			return Job{}, fmt.Errorf("decode job: empty document")
		}
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}

// Options is a small helper to fetch typed values from free-form maps. It
// performs only minimal type coercion and returns the provided default when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. YAML decodes integers as int and
// encoding/json as float64; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings. Non-string elements are skipped. Returns nil when the key is
// missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// UnmarshalYAML decodes a mapping node. Null blocks never reach it and stay
// nil, which every accessor treats as empty.
func (o *Options) UnmarshalYAML(value *yaml.Node) error {
	tmp := map[string]any{}
	if value.Tag != "!!null" {
		if err := value.Decode(&tmp); err != nil {
			return err
		}
	}
	*o = Options(tmp)
	return nil
}

// UnmarshalJSON is the encoding/json counterpart of UnmarshalYAML.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
