// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/wes-public-apps/protobuf-db/internal/datasource"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// Local opens a file from the local disk. Names ending in .gz or .zst are
// decompressed on the fly.
type Local struct {
	path  string
	stdin io.Reader
}

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path, stdin: os.Stdin} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open returns a reader over the file. A canceled context short-circuits
// before touching the filesystem. Filesystem errors are wrapped with the
// path and keep errors.Is(err, os.ErrNotExist) working.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if l.path == Stdin {
		return io.NopCloser(l.stdin), nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return datasource.Decompress(datasource.CompressionOf(l.path), f)
}
