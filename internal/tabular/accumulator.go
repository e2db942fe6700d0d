package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wes-public-apps/protobuf-db/internal/flatten"
	"github.com/wes-public-apps/protobuf-db/internal/metrics"
	"github.com/wes-public-apps/protobuf-db/internal/schema"
)

// Options configure accumulators and the demultiplexer.
type Options struct {
	// ScratchDir holds scratch files; empty means os.TempDir.
	ScratchDir string
	// InMemory keeps scratch rows in memory instead of on disk.
	InMemory bool
	// FinalizeWorkers bounds how many kinds Demux finalizes at once.
	// Values below 1 mean 1.
	FinalizeWorkers int
	// Job labels emitted metrics.
	Job    string
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Result summarizes one finalized kind.
type Result struct {
	Kind        string
	Rows        int64
	Columns     int
	Fingerprint uint64
	Path        string // set by WriteFile
}

// Accumulator collects the records of a single kind.
type Accumulator struct {
	kind    string
	fl      *flatten.Flattener
	opts    Options
	log     *zap.Logger
	schema  *RunningSchema
	scratch Scratch
	rows    int64
	done    bool
}

// NewAccumulator returns an accumulator for records of kind. An empty kind
// is bound to the first record added.
func NewAccumulator(kind string, fl *flatten.Flattener, opts Options) *Accumulator {
	return &Accumulator{
		kind:   kind,
		fl:     fl,
		opts:   opts,
		log:    opts.logger().With(zap.String("kind", kind)),
		schema: NewRunningSchema(),
	}
}

// Kind is the record kind this accumulator accepts.
func (a *Accumulator) Kind() string { return a.kind }

// Schema exposes the running schema. Callers must not retain it past
// Finalize.
func (a *Accumulator) Schema() *RunningSchema { return a.schema }

// Rows is the number of records added so far.
func (a *Accumulator) Rows() int64 { return a.rows }

// Add flattens rec and spools it.
func (a *Accumulator) Add(rec any) error {
	m, err := a.fl.Provider().Describe(rec)
	if err != nil {
		return err
	}
	return a.addAs(rec, m)
}

func (a *Accumulator) addAs(rec any, m *schema.Message) error {
	if a.kind == "" {
		a.kind = m.FullName
		a.log = a.opts.logger().With(zap.String("kind", a.kind))
	}
	if m.FullName != a.kind {
		return &schema.ShapeError{Kind: a.kind, Reason: fmt.Sprintf("record of kind %s added to this kind's table", m.FullName)}
	}
	fields, err := a.fl.FlattenAs(rec, m)
	if err != nil {
		return err
	}
	return a.AddFields(fields)
}

// AddFields spools an already flattened record.
func (a *Accumulator) AddFields(fields []flatten.Field) error {
	if a.done {
		return ErrFinalized
	}
	if a.scratch == nil {
		s, err := a.newScratch()
		if err != nil {
			return ioErr("scratch-create", a.kind, err)
		}
		a.scratch = s
	}

	row := SparseRow{Cols: make([]int, len(fields)), Values: make([]string, len(fields))}
	for i, f := range fields {
		col, added := a.schema.Observe(f.Path)
		if added && a.rows > 0 {
			a.log.Debug("column added", zap.String("path", f.Path), zap.Int("col", col))
		}
		row.Cols[i] = col
		row.Values[i] = flatten.FormatValue(f.Value)
	}
	row.Width = a.schema.Len()

	if err := a.scratch.Append(row); err != nil {
		return ioErr("scratch-write", a.kind, err)
	}
	a.rows++
	metrics.RecordRow(a.opts.Job, "flattened", 1)
	return nil
}

func (a *Accumulator) newScratch() (Scratch, error) {
	if a.opts.InMemory {
		return NewMemoryScratch(), nil
	}
	return NewFileScratch(a.opts.ScratchDir)
}

// Finalize writes the header and every padded row to sink, then closes it.
// The scratch store is released whether or not finalize succeeds.
func (a *Accumulator) Finalize(sink Sink) (res Result, err error) {
	if a.done {
		return Result{}, ErrFinalized
	}
	a.done = true
	start := time.Now()
	defer func() {
		if rerr := a.Release(); rerr != nil && err == nil {
			err = ioErr("scratch-release", a.kind, rerr)
		}
		metrics.RecordStep(a.opts.Job, "finalize", err, time.Since(start))
	}()

	paths := a.schema.Paths()
	if err := sink.Header(paths); err != nil {
		_ = sink.Close()
		return Result{}, ioErr("write", a.kind, err)
	}

	width := len(paths)
	var written int64
	if a.scratch != nil {
		dense := make([]string, width)
		err = a.scratch.Replay(func(r SparseRow) error {
			if r.Width > width {
				return fmt.Errorf("scratch row wider than schema (%d > %d)", r.Width, width)
			}
			clear(dense)
			for i, c := range r.Cols {
				dense[c] = r.Values[i]
			}
			if werr := sink.Row(dense); werr != nil {
				return ioErr("write", a.kind, werr)
			}
			written++
			return nil
		})
		if err != nil {
			_ = sink.Close()
			return Result{}, ioErr("scratch-read", a.kind, err)
		}
	}
	if err := sink.Close(); err != nil {
		return Result{}, ioErr("close", a.kind, err)
	}

	metrics.RecordRow(a.opts.Job, "finalized", written)
	a.log.Info("kind finalized",
		zap.Int64("rows", written),
		zap.Int("columns", width),
		zap.Duration("elapsed", time.Since(start)))

	return Result{
		Kind:        a.kind,
		Rows:        written,
		Columns:     width,
		Fingerprint: a.schema.Fingerprint(),
	}, nil
}

// WriteFile finalizes into path. Output goes to a temporary file in the same
// directory which is renamed over path only after a successful finalize.
func (a *Accumulator) WriteFile(path string) (Result, error) {
	if a.done {
		return Result{}, ErrFinalized
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		_ = a.Release()
		a.done = true
		return Result{}, ioErr("open", a.kind, err)
	}
	tmpName := tmp.Name()
	// CreateTemp uses 0600; match what os.Create would have produced.
	_ = tmp.Chmod(0o644)

	res, err := a.Finalize(NewCSVSink(tmp))
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return Result{}, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return Result{}, ioErr("close", a.kind, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return Result{}, ioErr("rename", a.kind, err)
	}
	res.Path = path
	return res, nil
}

// Release discards the scratch store without producing output.
func (a *Accumulator) Release() error {
	if a.scratch == nil {
		return nil
	}
	err := a.scratch.Release()
	a.scratch = nil
	return err
}
