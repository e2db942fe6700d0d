// Package datasource opens the byte streams a run reads from: record dumps
// and serialized descriptor sets, local or remote.
package datasource

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Source yields a fresh reader per Open. Callers close what they open.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Compression identifies a stream encoding recognized by Decompress.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

// CompressionOf infers the encoding from a file name or URL path suffix.
func CompressionOf(name string) Compression {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".gz", ".gzip":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	}
	return None
}

// Decompress wraps rc in a decoder for c. Closing the result closes rc.
// On error rc is closed.
func Decompress(c Compression, rc io.ReadCloser) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("datasource: gzip: %w", err)
		}
		return &decoded{Reader: zr, close: zr.Close, under: rc}, nil
	case Zstd:
		zr, err := zstd.NewReader(rc)
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("datasource: zstd: %w", err)
		}
		return &decoded{Reader: zr, close: func() error { zr.Close(); return nil }, under: rc}, nil
	}
	return rc, nil
}

type decoded struct {
	io.Reader
	close func() error
	under io.Closer
}

func (d *decoded) Close() error {
	err := d.close()
	if cerr := d.under.Close(); err == nil {
		err = cerr
	}
	return err
}
