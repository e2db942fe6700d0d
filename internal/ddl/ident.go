package ddl

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// hashLen is the length of the "_<16 hex>" suffix added to shortened names.
const hashLen = 17

// Shorten returns id unchanged when it fits in max bytes (or max <= 0).
// Otherwise it keeps the longest rune-aligned prefix that leaves room for an
// "_" plus the 16-hex xxh3 of the full id, so distinct long ids stay distinct.
func Shorten(id string, max int) string {
	if max <= 0 || len(id) <= max {
		return id
	}
	suffix := fmt.Sprintf("_%016x", xxh3.HashString(id))
	keep := max - hashLen
	if keep < 0 {
		return suffix[1:][:max]
	}
	for keep > 0 && !utf8.RuneStart(id[keep]) {
		keep--
	}
	return id[:keep] + suffix
}

// ColumnNames maps header paths to column identifiers for d. Paths that
// exceed d.MaxIdent are shortened. Paths that would collide under Unicode
// case folding get a hash suffix, since several engines compare column names
// case-insensitively.
func ColumnNames(paths []string, d Dialect) []string {
	fold := cases.Fold()
	out := make([]string, len(paths))
	used := make(map[string]struct{}, len(paths))
	for i, p := range paths {
		name := Shorten(p, d.MaxIdent)
		key := fold.String(name)
		if _, clash := used[key]; clash {
			name = forceSuffix(p, d.MaxIdent)
			key = fold.String(name)
		}
		used[key] = struct{}{}
		out[i] = name
	}
	return out
}

func forceSuffix(id string, max int) string {
	s := Shorten(id, max)
	if s != id {
		return s
	}
	suffixed := fmt.Sprintf("%s_%016x", id, xxh3.HashString(id))
	if max > 0 && len(suffixed) > max {
		return Shorten(suffixed, max)
	}
	return suffixed
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// TableName derives an ASCII table identifier from a kind identifier:
// accents are stripped (NFD, drop marks, NFC), every other character outside
// [A-Za-z0-9_] becomes "_", and prefix is prepended. The result is shortened
// to d.MaxIdent.
func TableName(kind, prefix string, d Dialect) (string, error) {
	folded, _, err := transform.String(transform.Chain(norm.NFD, stripMarks, norm.NFC), kind)
	if err != nil {
		return "", fmt.Errorf("ddl: normalize %q: %w", kind, err)
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, r := range folded {
		switch {
		case r == '_', r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	name := sb.String()
	if strings.Trim(name, "_") == "" {
		return "", fmt.Errorf("ddl: kind %q yields an empty table name", kind)
	}
	return Shorten(name, d.MaxIdent), nil
}

// FQN joins schema and table with a dot; an empty schema yields table.
func FQN(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}
