package tabular

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wes-public-apps/protobuf-db/internal/flatten"
)

// Demux routes a mixed stream to one Accumulator per record kind. Kinds are
// keyed by the schema's full name and kept in first-seen order.
type Demux struct {
	fl    *flatten.Flattener
	opts  Options
	order []string
	accs  map[string]*Accumulator
}

// NewDemux returns an empty demultiplexer.
func NewDemux(fl *flatten.Flattener, opts Options) *Demux {
	return &Demux{fl: fl, opts: opts, accs: map[string]*Accumulator{}}
}

// Add routes rec to the accumulator of its kind, creating it on first sight.
func (d *Demux) Add(rec any) error {
	m, err := d.fl.Provider().Describe(rec)
	if err != nil {
		return err
	}
	acc, ok := d.accs[m.FullName]
	if !ok {
		acc = NewAccumulator(m.FullName, d.fl, d.opts)
		d.accs[m.FullName] = acc
		d.order = append(d.order, m.FullName)
		d.opts.logger().Debug("new kind", zap.String("kind", m.FullName))
	}
	return acc.addAs(rec, m)
}

// Kinds lists the kinds seen so far in first-seen order.
func (d *Demux) Kinds() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Accumulator returns the accumulator of kind, or nil.
func (d *Demux) Accumulator(kind string) *Accumulator { return d.accs[kind] }

// FinalizeDir writes <kind>.csv for every kind into dir, creating dir if
// needed. Results are returned in first-seen kind order.
func (d *Demux) FinalizeDir(ctx context.Context, dir string) ([]Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = d.Release()
		return nil, ioErr("mkdir", "", err)
	}
	return d.finalize(ctx, func(kind string, acc *Accumulator) (Result, error) {
		return acc.WriteFile(filepath.Join(dir, kind+".csv"))
	})
}

// FinalizeWith finalizes every kind into the sink returned by open.
func (d *Demux) FinalizeWith(ctx context.Context, open func(kind string) (Sink, error)) ([]Result, error) {
	return d.finalize(ctx, func(kind string, acc *Accumulator) (Result, error) {
		sink, err := open(kind)
		if err != nil {
			_ = acc.Release()
			return Result{}, ioErr("open", kind, err)
		}
		return acc.Finalize(sink)
	})
}

// finalize runs fn for each kind, at most FinalizeWorkers at a time. Kinds
// are independent, so only the order within a kind matters and that is fixed
// by its scratch. After the first failure no further kind starts and every
// remaining scratch is released.
func (d *Demux) finalize(ctx context.Context, fn func(string, *Accumulator) (Result, error)) ([]Result, error) {
	workers := d.opts.FinalizeWorkers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make([]Result, len(d.order))
	for i, kind := range d.order {
		acc := d.accs[kind]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				_ = acc.Release()
				return err
			}
			res, err := fn(kind, acc)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		if rerr := d.Release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return nil, err
	}
	return results, nil
}

// Release discards every scratch store without producing output.
func (d *Demux) Release() error {
	var errs []error
	for _, kind := range d.order {
		if err := d.accs[kind].Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
