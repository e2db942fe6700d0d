package storage

import (
	"fmt"
	"strings"

	"github.com/wes-public-apps/protobuf-db/internal/ddl"
)

// InsertSQL renders "INSERT INTO t (cols) VALUES (...), (...)" for n rows.
// placeholder returns the bind marker for the i-th (0-based) argument.
func InsertSQL(table string, d ddl.Dialect, columns []string, n int, placeholder func(i int) string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", d.QuoteFQN(table), strings.Join(d.QuoteAll(columns), ", "))
	arg := 0
	for r := 0; r < n; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range columns {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder(arg))
			arg++
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// Chunk splits rows so that no chunk binds more than maxParams arguments or
// holds more than maxRows rows (0 means no row limit). A single row wider
// than maxParams is an error.
func Chunk(rows [][]any, width, maxParams, maxRows int) ([][][]any, error) {
	if width <= 0 {
		return nil, fmt.Errorf("storage: chunk width must be > 0")
	}
	per := maxParams / width
	if per == 0 {
		return nil, fmt.Errorf("storage: %d columns exceed the %d bind parameter limit", width, maxParams)
	}
	if maxRows > 0 && per > maxRows {
		per = maxRows
	}
	out := make([][][]any, 0, (len(rows)+per-1)/per)
	for len(rows) > 0 {
		n := min(per, len(rows))
		out = append(out, rows[:n])
		rows = rows[n:]
	}
	return out, nil
}

// Flatten concatenates row values into one argument list.
func Flatten(rows [][]any) []any {
	n := 0
	for _, r := range rows {
		n += len(r)
	}
	out := make([]any, 0, n)
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
