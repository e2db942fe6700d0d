package ddl

import "strings"

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, NVARCHAR(MAX))
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name (FQN) and an ordered list of columns. The
// FQN is in dotted form ("schema.table") and is quoted per segment.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect captures what differs between SQL flavors for the tables this
// module creates.
type Dialect struct {
	// Name is the storage kind, e.g. "postgres".
	Name string

	// Quote quotes a single identifier segment.
	Quote func(id string) string

	// TextType is the column type used for flattened values.
	TextType string

	// MaxIdent is the identifier length limit in bytes; 0 means unlimited.
	MaxIdent int

	// Guard wraps a CREATE TABLE statement so it is a no-op when the table
	// exists. quoted is the rendered table name, raw the unquoted FQN.
	// When nil the statement uses CREATE TABLE IF NOT EXISTS.
	Guard func(quoted, raw, create string) string
}

// QuoteFQN quotes every non-empty dotted segment of fqn.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.Quote(p))
	}
	return strings.Join(out, ".")
}

// QuoteAll quotes each identifier in ids.
func (d Dialect) QuoteAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = d.Quote(id)
	}
	return out
}

// DoubleQuote is the ANSI identifier quoting used by Postgres and SQLite.
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
