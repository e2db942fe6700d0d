package tabular

import (
	"bufio"
	"io"
	"strings"
)

// Sink receives a finalized table: the header once, then every row padded
// to the header's width.
type Sink interface {
	Header(paths []string) error
	Row(values []string) error
	Close() error
}

// CSVSink writes comma-joined lines with no quoting. Values that contain
// commas or newlines are written as-is.
type CSVSink struct {
	w *bufio.Writer
}

// NewCSVSink buffers writes to w. Close flushes but does not close w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: bufio.NewWriterSize(w, 64<<10)}
}

func (s *CSVSink) Header(paths []string) error { return s.line(paths) }

func (s *CSVSink) Row(values []string) error { return s.line(values) }

func (s *CSVSink) line(vals []string) error {
	if _, err := s.w.WriteString(strings.Join(vals, ",")); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

func (s *CSVSink) Close() error { return s.w.Flush() }
