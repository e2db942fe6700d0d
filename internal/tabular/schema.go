// Package tabular turns streams of flattened records into width-reconciled
// CSV tables.
//
// Records are accepted in two phases. Add flattens a record, extends the
// per-kind RunningSchema with any paths it has not seen and appends a sparse
// row to a scratch store. Finalize writes the header (the final schema) and
// replays the scratch rows, padding each with trailing empty columns. New
// columns are only ever appended, so padding never moves a value.
package tabular

import (
	"strings"

	"github.com/zeebo/xxh3"
)

// RunningSchema is the append-only, insertion-ordered set of paths observed
// for one record kind.
type RunningSchema struct {
	paths []string
	index map[string]int
}

// NewRunningSchema returns an empty schema.
func NewRunningSchema() *RunningSchema {
	return &RunningSchema{index: map[string]int{}}
}

// Observe returns the column of path, appending it when it is new.
func (s *RunningSchema) Observe(path string) (col int, added bool) {
	if c, ok := s.index[path]; ok {
		return c, false
	}
	c := len(s.paths)
	s.paths = append(s.paths, path)
	s.index[path] = c
	return c, true
}

// Column returns the column of path and whether it has been observed.
func (s *RunningSchema) Column(path string) (int, bool) {
	c, ok := s.index[path]
	return c, ok
}

// Len is the current width.
func (s *RunningSchema) Len() int { return len(s.paths) }

// Paths returns a copy of the observed paths in column order.
func (s *RunningSchema) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Header is the comma-joined path list.
func (s *RunningSchema) Header() string { return strings.Join(s.paths, ",") }

// Fingerprint hashes the ordered path list. Two kinds share a fingerprint
// only when their headers are identical.
func (s *RunningSchema) Fingerprint() uint64 {
	h := xxh3.New()
	for _, p := range s.paths {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
