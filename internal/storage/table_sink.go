package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wes-public-apps/protobuf-db/internal/ddl"
	"github.com/wes-public-apps/protobuf-db/internal/metrics"
	"github.com/wes-public-apps/protobuf-db/internal/tabular"
)

// DefaultBatchSize is used when TableOptions.BatchSize is not positive.
const DefaultBatchSize = 1000

// TableOptions configures how one kind is loaded.
type TableOptions struct {
	// Schema qualifies the table name; empty uses the connection default.
	Schema string
	// Prefix is prepended to the normalized kind identifier.
	Prefix string
	// AutoCreate issues CREATE TABLE (idempotent) before loading.
	AutoCreate bool
	BatchSize  int
	Job        string
	Logger     *zap.Logger
}

// TableSink is a tabular.Sink that streams a finalized table into a database.
// Header derives the table and its TEXT columns from the kind and the header
// paths; Row queues one padded row; Close waits for the last batch. Empty
// cells are stored as NULL.
type TableSink struct {
	ctx  context.Context
	repo Repository
	kind string
	opts TableOptions
	log  *zap.Logger

	table   string
	columns []string
	rows    chan []any
	done    chan struct{}
	started time.Time

	loaded int64
	err    error
	closed bool
}

var _ tabular.Sink = (*TableSink)(nil)

// NewTableSink returns a sink that loads kind through repo. ctx bounds the
// whole load.
func NewTableSink(ctx context.Context, repo Repository, kind string, opts TableOptions) *TableSink {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &TableSink{
		ctx:  ctx,
		repo: repo,
		kind: kind,
		opts: opts,
		log:  log.With(zap.String("kind", kind)),
	}
}

// Table returns the dotted table FQN once Header has run.
func (s *TableSink) Table() string { return s.table }

// Columns returns the column identifiers once Header has run.
func (s *TableSink) Columns() []string { return s.columns }

// Loaded reports the rows inserted. Valid after Close.
func (s *TableSink) Loaded() int64 { return s.loaded }

// Header resolves the table, creates it when configured and starts the loader.
func (s *TableSink) Header(paths []string) error {
	if s.rows != nil {
		return fmt.Errorf("storage: header already written for %s", s.kind)
	}
	d := s.repo.Dialect()
	name, err := ddl.TableName(s.kind, s.opts.Prefix, d)
	if err != nil {
		return err
	}
	s.table = ddl.FQN(s.opts.Schema, name)
	s.columns = ddl.ColumnNames(paths, d)

	if s.opts.AutoCreate {
		stmt, err := ddl.BuildCreateTableSQL(ddl.TextTable(s.table, s.columns, d), d)
		if err != nil {
			return err
		}
		if err := s.repo.Exec(s.ctx, stmt); err != nil {
			return fmt.Errorf("storage: create %s: %w", s.table, err)
		}
		s.log.Debug("table ensured", zap.String("table", s.table), zap.Int("columns", len(s.columns)))
	}

	s.rows = make(chan []any, s.opts.BatchSize)
	s.done = make(chan struct{})
	s.started = time.Now()
	go func() {
		defer close(s.done)
		var batches int64
		s.loaded, s.err = LoadBatches(s.ctx, s.log, s.columns, s.rows, s.opts.BatchSize,
			func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
				n, err := s.repo.CopyFrom(ctx, s.table, cols, rows)
				if err == nil {
					batches++
				}
				return n, err
			})
		metrics.RecordBatches(s.opts.Job, batches)
	}()
	return nil
}

// Row converts values to driver arguments and queues them.
func (s *TableSink) Row(values []string) error {
	if s.rows == nil {
		return errors.New("storage: row before header")
	}
	if len(values) != len(s.columns) {
		return fmt.Errorf("storage: row has %d values, table %s has %d columns", len(values), s.table, len(s.columns))
	}
	row := rowArgs(values)
	select {
	case s.rows <- row:
		return nil
	case <-s.done:
		if s.err != nil {
			return fmt.Errorf("storage: load %s: %w", s.table, s.err)
		}
		return fmt.Errorf("storage: load %s stopped", s.table)
	}
}

// rowArgs converts a padded row to driver arguments. Empty cells, which are
// also what padding produces, become nil so they load as NULL.
func rowArgs(values []string) []any {
	row := make([]any, len(values))
	for i, v := range values {
		if v != "" {
			row[i] = v
		}
	}
	return row
}

// Close flushes the final batch and reports the first load error. Batches
// already copied stay in the table when a later one fails.
func (s *TableSink) Close() error {
	if s.rows == nil || s.closed {
		return nil
	}
	s.closed = true
	close(s.rows)
	<-s.done

	metrics.RecordStep(s.opts.Job, "load", s.err, time.Since(s.started))
	metrics.RecordRow(s.opts.Job, "inserted", s.loaded)
	if s.err != nil {
		return fmt.Errorf("storage: load %s: %w", s.table, s.err)
	}
	s.log.Info("table loaded", zap.String("table", s.table), zap.Int64("rows", s.loaded))
	return nil
}
