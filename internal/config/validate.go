package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users but
	// does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Job.
//
// Path is a dotted path into the config (e.g. "output.path",
// "source.http.url"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of a Job. It does not mutate the job.
// Callers decide whether warnings are fatal.
func Validate(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(j.Source)...)
	issues = append(issues, validateRecords(j.Records)...)
	issues = append(issues, validateOutput(j.Output, j.Records)...)
	if j.Output.Kind == "db" {
		issues = append(issues, validateStorage(j.Storage)...)
	}
	issues = append(issues, validateRuntime(j.Runtime)...)
	issues = append(issues, validateMetrics(j.Metrics)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	switch strings.TrimSpace(s.Kind) {
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	case "http":
		u, err := url.Parse(s.HTTP.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.url",
				Message:  fmt.Sprintf("http source requires an absolute http(s) URL, got %q", s.HTTP.URL),
			})
		}
		if s.HTTP.Timeout != "" {
			if _, err := time.ParseDuration(s.HTTP.Timeout); err != nil {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "source.http.timeout",
					Message:  fmt.Sprintf("invalid duration %q: %v", s.HTTP.Timeout, err),
				})
			}
		}
		if s.HTTP.MaxRetries < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.max_retries",
				Message:  "max_retries must not be negative",
			})
		}
		if s.HTTP.InsecureSkipVerify {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.http.insecure_skip_verify",
				Message:  "TLS verification is disabled",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; want file or http", s.Kind),
		})
	}
	return issues
}

func validateRecords(r Records) []Issue {
	var issues []Issue

	switch r.Format {
	case "", "delimited", "jsonl":
	case "json":
		if r.Selector == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "records.selector",
				Message:  "no selector for json records; the top-level array is used",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "records.format",
			Message:  fmt.Sprintf("unknown record format %q; want delimited, jsonl or json", r.Format),
		})
	}
	if r.Selector != "" && r.Format != "json" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "records.selector",
			Message:  "selector is only used with format json",
		})
	}
	if r.Descriptors == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "records.descriptors",
			Message:  "no descriptor set; message names resolve only against compiled-in types",
		})
	}
	return issues
}

func validateOutput(o Output, r Records) []Issue {
	var issues []Issue

	switch o.Kind {
	case "csv":
		if strings.TrimSpace(o.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.path",
				Message:  "csv output requires a path",
			})
		}
		if o.Mixed && o.Path == "-" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.path",
				Message:  "mixed csv output needs a directory, not stdout",
			})
		}
	case "db":
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.kind",
			Message:  "output.kind must not be empty",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.kind",
			Message:  fmt.Sprintf("unknown output kind %q; want csv or db", o.Kind),
		})
	}

	if !o.Mixed && r.Message == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "records.message",
			Message:  "single-kind output requires records.message; set output.mixed for Any streams",
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if s.Kind == "sqlite" && s.DB.Schema != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.db.schema",
			Message:  "sqlite has no schemas; the value names an attached database",
		})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.FinalizeWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.finalize_workers",
			Message:  "finalize_workers must not be negative",
		})
	}
	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	if r.InMemory && r.ScratchDir != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.scratch_dir",
			Message:  "scratch_dir is ignored when in_memory is set",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "prometheus":
		if m.Options.String("url", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.options.url",
				Message:  "prometheus backend requires a pushgateway url",
			})
		}
	case "datadog":
		if m.Options.String("addr", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.options.addr",
				Message:  "no dogstatsd addr; the client default is used",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; want prometheus or datadog", m.Backend),
		})
	}
	return issues
}
