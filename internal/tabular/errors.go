package tabular

import (
	"errors"
	"fmt"
)

// ErrFinalized is returned when records are added to, or a second finalize is
// attempted on, an accumulator that has already been finalized.
var ErrFinalized = errors.New("tabular: accumulator already finalized")

// IOError reports a scratch or output failure. It aborts the finalize of the
// affected kind; whatever was written to the destination must be discarded.
type IOError struct {
	Op   string // "scratch-write", "scratch-read", "open", "write", "rename", ...
	Kind string
	Err  error
}

func (e *IOError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("tabular: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tabular: %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func ioErr(op, kind string, err error) error {
	if err == nil {
		return nil
	}
	var ie *IOError
	if errors.As(err, &ie) {
		return err
	}
	return &IOError{Op: op, Kind: kind, Err: err}
}
