package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/wes-public-apps/protobuf-db/internal/config"
)

// jobFlags are the flags flatten and demux share. They compose a
// config.Job so both commands run through the same path as `run`.
type jobFlags struct {
	job         string
	descriptors string
	message     string
	format      string
	selector    string
	out         string

	scratchDir string
	inMemory   bool
	workers    int

	dbKind      string
	dsn         string
	schema      string
	tablePrefix string
	autoCreate  bool
	batchSize   int

	metricsBackend  string
	metricsEndpoint string
}

func (f *jobFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.job, "job", "pbflat", "job name used for metrics and logs")
	fs.StringVar(&f.descriptors, "descriptors", "", "FileDescriptorSet path or URL (default: compiled-in types)")
	fs.StringVar(&f.message, "message", "", "full message name of every record (default: google.protobuf.Any records)")
	fs.StringVar(&f.format, "format", "delimited", "record encoding: delimited, jsonl or json")
	fs.StringVar(&f.selector, "selector", "", "JSONPath selecting records with --format json")
	fs.StringVar(&f.scratchDir, "scratch-dir", "", "directory for scratch files (default: system temp)")
	fs.BoolVar(&f.inMemory, "in-memory", false, "keep scratch rows in memory")
	fs.StringVar(&f.dbKind, "db", "", "load into a database of this kind instead of CSV ("+strings.Join([]string{"sqlite", "postgres", "mysql", "mssql"}, ", ")+")")
	fs.StringVar(&f.dsn, "dsn", "", "database connection string")
	fs.StringVar(&f.schema, "schema", "", "database schema for created tables")
	fs.StringVar(&f.tablePrefix, "table-prefix", "", "prefix for table names derived from record kinds")
	fs.BoolVar(&f.autoCreate, "auto-create", true, "create missing tables from the final header")
	fs.IntVar(&f.batchSize, "batch-size", 0, "rows per database batch (default 1000)")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: prometheus or datadog")
	fs.StringVar(&f.metricsEndpoint, "metrics-endpoint", "", "pushgateway URL or dogstatsd address")
}

// toJob builds a job reading from input. mixed selects one table per kind.
func (f *jobFlags) toJob(input string, mixed bool) config.Job {
	j := config.Job{
		Job: f.job,
		Records: config.Records{
			Format:      f.format,
			Message:     f.message,
			Selector:    f.selector,
			Descriptors: f.descriptors,
		},
		Output: config.Output{Kind: "csv", Path: f.out, Mixed: mixed},
		Runtime: config.RuntimeConfig{
			ScratchDir:      f.scratchDir,
			InMemory:        f.inMemory,
			FinalizeWorkers: f.workers,
			BatchSize:       f.batchSize,
		},
		Metrics: config.Metrics{Backend: f.metricsBackend},
	}

	if isURL(input) {
		j.Source = config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: input}}
	} else {
		j.Source = config.Source{Kind: "file", File: config.SourceFile{Path: input}}
	}

	if f.dbKind != "" {
		j.Output.Kind = "db"
		j.Storage = config.Storage{
			Kind: f.dbKind,
			DB: config.DBConfig{
				DSN:             f.dsn,
				Schema:          f.schema,
				TablePrefix:     f.tablePrefix,
				AutoCreateTable: f.autoCreate,
			},
		}
	}

	switch f.metricsBackend {
	case "prometheus":
		j.Metrics.Options = config.Options{"url": f.metricsEndpoint}
	case "datadog":
		j.Metrics.Options = config.Options{"addr": f.metricsEndpoint}
	}
	return j
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// inputArg returns the single positional input, or stdin.
func inputArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}
