package tabular

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// SparseRow is one record as seen when it was added: the schema width at the
// time and the columns it carried values for. Columns absent from Cols are
// empty in the final row.
type SparseRow struct {
	Width  int
	Cols   []int
	Values []string
}

// Scratch holds the sparse rows of one kind between Add and Finalize.
// A Scratch is owned by a single accumulator and is not safe for concurrent
// use.
type Scratch interface {
	Append(r SparseRow) error
	// Replay calls fn for every appended row in order.
	Replay(fn func(SparseRow) error) error
	// Release discards the stored rows. It is safe to call more than once.
	Release() error
}

// MemoryScratch keeps rows in memory.
type MemoryScratch struct {
	rows []SparseRow
}

// NewMemoryScratch returns an empty in-memory scratch.
func NewMemoryScratch() *MemoryScratch { return &MemoryScratch{} }

// Append keeps r for replay.
func (m *MemoryScratch) Append(r SparseRow) error {
	m.rows = append(m.rows, r)
	return nil
}

// Replay calls fn for each row in append order, stopping at the first error.
func (m *MemoryScratch) Replay(fn func(SparseRow) error) error {
	for _, r := range m.rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Release drops the buffered rows.
func (m *MemoryScratch) Release() error {
	m.rows = nil
	return nil
}

// FileScratch spools rows to a temporary file. Each row is framed as
//
//	uvarint width, uvarint n, then n times: uvarint col, uvarint len, bytes
//
// so values containing commas or newlines round-trip unchanged.
type FileScratch struct {
	f   *os.File
	w   *bufio.Writer
	buf []byte
}

// NewFileScratch creates the backing file in dir (os.TempDir when empty).
func NewFileScratch(dir string) (*FileScratch, error) {
	f, err := os.CreateTemp(dir, "pbflat-*.scratch")
	if err != nil {
		return nil, fmt.Errorf("create scratch: %w", err)
	}
	return &FileScratch{f: f, w: bufio.NewWriterSize(f, 64<<10)}, nil
}

// Name is the path of the backing file.
func (s *FileScratch) Name() string {
	if s.f == nil {
		return ""
	}
	return s.f.Name()
}

// Append writes r as one framed record. It fails after Release.
func (s *FileScratch) Append(r SparseRow) error {
	if s.f == nil {
		return os.ErrClosed
	}
	s.buf = s.buf[:0]
	s.buf = binary.AppendUvarint(s.buf, uint64(r.Width))
	s.buf = binary.AppendUvarint(s.buf, uint64(len(r.Cols)))
	for i, c := range r.Cols {
		s.buf = binary.AppendUvarint(s.buf, uint64(c))
		s.buf = binary.AppendUvarint(s.buf, uint64(len(r.Values[i])))
		s.buf = append(s.buf, r.Values[i]...)
	}
	_, err := s.w.Write(s.buf)
	return err
}

// Replay flushes pending writes and decodes every row from the start of the file.
func (s *FileScratch) Replay(fn func(SparseRow) error) error {
	if s.f == nil {
		return os.ErrClosed
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	// Leave the write position at the end so Append keeps working.
	defer func() { _, _ = s.f.Seek(0, io.SeekEnd) }()
	adviseSequential(s.f)

	rd := bufio.NewReaderSize(s.f, 64<<10)
	for {
		row, err := readRow(rd)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

func readRow(rd *bufio.Reader) (SparseRow, error) {
	width, err := binary.ReadUvarint(rd)
	if err != nil {
		// A clean EOF is only valid on a frame boundary.
		return SparseRow{}, err
	}
	n, err := binary.ReadUvarint(rd)
	if err != nil {
		return SparseRow{}, truncated(err)
	}
	row := SparseRow{Width: int(width), Cols: make([]int, n), Values: make([]string, n)}
	for i := range row.Cols {
		c, err := binary.ReadUvarint(rd)
		if err != nil {
			return SparseRow{}, truncated(err)
		}
		l, err := binary.ReadUvarint(rd)
		if err != nil {
			return SparseRow{}, truncated(err)
		}
		b := make([]byte, l)
		if _, err := io.ReadFull(rd, b); err != nil {
			return SparseRow{}, truncated(err)
		}
		row.Cols[i] = int(c)
		row.Values[i] = string(b)
	}
	return row, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Release closes and removes the backing file. Calling it twice is a no-op.
func (s *FileScratch) Release() error {
	if s.f == nil {
		return nil
	}
	name := s.f.Name()
	cerr := s.f.Close()
	s.f = nil
	rerr := os.Remove(name)
	if rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		return rerr
	}
	if cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		return cerr
	}
	return nil
}
