// Package metrics records operational counters and timings for flatten and
// export runs without tying callers to a metrics system.
//
// A global backend defaults to a no-op, so every Record* helper is safe to
// call before (or without) SetBackend. Concrete systems live in the
// prompush and datadog subpackages.
package metrics

import "time"

// Metric names emitted by the Record* helpers.
const (
	StepTotal     = "pbflat_step_total"
	StepDuration  = "pbflat_step_duration_seconds"
	RecordsTotal  = "pbflat_records_total"
	BatchesTotal  = "pbflat_batches_total"
	SkippedFields = "pbflat_skipped_fields_total"
	statusSuccess = "success"
	statusFailure = "failure"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of step and observes its duration.
// Steps are "flatten", "finalize" and "load".
func RecordStep(job, step string, err error, d time.Duration) {
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments the record counter for job. kind is the row stage:
//   - "flattened": a record was added to an accumulator
//   - "finalized": a padded row was written to a sink
//   - "inserted": a row reached a database table
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordSkipped counts fields dropped because their kind is unsupported.
func RecordSkipped(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(SkippedFields, float64(delta), Labels{
		"job": job,
	})
}

// RecordBatches increments the batch counter for job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
